package sync

import (
	"context"
	gosync "sync"

	"booksync/internal/app/books"
)

// orderLocks блокировка на заказ. Все изменения State одного заказа выполняются под ней.
type orderLocks struct {
	mu    gosync.Mutex
	locks map[int64]*orderLock
}

type orderLock struct {
	ch   chan struct{}
	refs int
}

// acquire ждет блокировку заказа или отмену ctx
func (l *orderLocks) acquire(ctx context.Context, orderID int64) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*orderLock)
	}
	ol, ok := l.locks[orderID]
	if !ok {
		ol = &orderLock{ch: make(chan struct{}, 1)}
		l.locks[orderID] = ol
	}
	ol.refs++
	l.mu.Unlock()

	select {
	case ol.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(orderID, ol)
		return nil, ctx.Err()
	}

	return func() {
		<-ol.ch
		l.release(orderID, ol)
	}, nil
}

func (l *orderLocks) release(orderID int64, ol *orderLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ol.refs--
	if ol.refs == 0 {
		delete(l.locks, orderID)
	}
}

// size число заказов с активной блокировкой
func (l *orderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// exclusive выполняет fn под блокировкой заказа. Контекст fn несет id заказа для логов клиента.
func (s *Service) exclusive(ctx context.Context, orderID int64, fn func(ctx context.Context)) error {
	unlock, err := s.locks.acquire(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()
	fn(books.WithOrderID(ctx, orderID))
	return nil
}
