package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/exp/slog"
)

const (
	DefaultLimit        = 100
	DefaultPollInterval = time.Second
)

// Limiter ограничивает число исходящих запросов в фиксированном минутном окне
type Limiter struct {
	counter Counter
	limit   int
	now     func() time.Time
	poll    time.Duration
	log     *slog.Logger
}

type Option func(*Limiter)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithPollInterval интервал опроса в WaitForAvailability
func WithPollInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.poll = d
		}
	}
}

func New(counter Counter, limit int, log *slog.Logger, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		counter: counter,
		limit:   limit,
		now:     time.Now,
		poll:    DefaultPollInterval,
		log:     log.With("component", "rate_limiter"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit максимальное число запросов в окне
func (l *Limiter) Limit() int {
	return l.limit
}

// CanMakeRequest true, пока счетчик текущего окна меньше лимита.
// Ошибка хранилища не блокирует запросы: удаленная сторона все равно ограничит нас сама.
func (l *Limiter) CanMakeRequest(ctx context.Context) bool {
	w, ok, err := l.counter.Get(ctx, WindowKey(l.now()))
	if err != nil {
		l.log.Warn("failed to read rate window", "error", err)
		return true
	}
	if !ok {
		return true
	}
	return w.Count < l.limit
}

// RecordRequest учитывает запрос в текущем окне
func (l *Limiter) RecordRequest(ctx context.Context) error {
	now := l.now()
	w, err := l.counter.Increment(ctx, WindowKey(now), now)
	if err != nil {
		return err
	}
	if w.Count == l.limit {
		l.log.Debug("rate limit reached for window", "window", w.Key, "limit", l.limit)
	}
	return nil
}

// WaitForAvailability опрашивает CanMakeRequest раз в интервал опроса, пока не истечет maxWait.
// Возвращает false по таймауту или при отмене контекста.
func (l *Limiter) WaitForAvailability(ctx context.Context, maxWait time.Duration) bool {
	attempts := int(maxWait / l.poll)
	for i := 0; ; i++ {
		if l.CanMakeRequest(ctx) {
			return true
		}
		if i >= attempts {
			l.log.Warn("rate limit wait timed out", "max_wait", maxWait.String())
			return false
		}
		if err := sleepContext(ctx, l.poll); err != nil {
			return false
		}
	}
}

// SecondsUntilReset время до истечения текущего окна, 0 если окно неизвестно
func (l *Limiter) SecondsUntilReset(ctx context.Context) int {
	now := l.now()
	w, ok, err := l.counter.Get(ctx, WindowKey(now))
	if err != nil || !ok {
		return 0
	}
	remaining := w.ExpiresAt().Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
