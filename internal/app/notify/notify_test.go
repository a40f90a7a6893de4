package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	stdsync "sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booksync/internal/domain/sync"
	"booksync/internal/utils/logger"
)

type receiver struct {
	mu      stdsync.Mutex
	batches [][]sync.Event
	status  atomic.Int32
}

func newReceiver(t *testing.T) (*receiver, string) {
	r := &receiver{}
	r.status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var p payload
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code := int(r.status.Load())
		if code == http.StatusOK {
			r.mu.Lock()
			r.batches = append(r.batches, p.Events)
			r.mu.Unlock()
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return r, srv.URL
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func event(orderID int64) sync.Event {
	return sync.Event{Type: sync.EventOrderSynced, OrderID: orderID, Message: "synced"}
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New(logger.Discard(), Config{Mode: "daily"})
	assert.ErrorIs(t, err, ErrUnknownMode)

	p, err := New(logger.Discard(), Config{})
	require.NoError(t, err)
	assert.Equal(t, ModeOff, p.Mode())
}

func TestPublisher_Immediate(t *testing.T) {
	rcv, url := newReceiver(t)
	p, err := New(logger.Discard(), Config{Mode: ModeImmediate, WebhookURL: url})
	require.NoError(t, err)

	p.Publish(context.Background(), event(1))
	p.Publish(context.Background(), event(2))

	assert.Equal(t, 2, rcv.count())
	assert.Equal(t, 0, p.Pending())
}

func TestPublisher_Batched(t *testing.T) {
	rcv, url := newReceiver(t)
	p, err := New(logger.Discard(), Config{Mode: ModeBatched, WebhookURL: url, MaxBatch: 3})
	require.NoError(t, err)

	p.Publish(context.Background(), event(1))
	p.Publish(context.Background(), event(2))
	assert.Equal(t, 0, rcv.count())
	assert.Equal(t, 2, p.Pending())

	// третье событие заполняет пакет
	p.Publish(context.Background(), event(3))
	require.Equal(t, 1, rcv.count())
	assert.Len(t, rcv.batches[0], 3)
	assert.Equal(t, 0, p.Pending())
}

func TestPublisher_FlushFailureKeepsEvents(t *testing.T) {
	rcv, url := newReceiver(t)
	rcv.status.Store(http.StatusBadGateway)
	p, err := New(logger.Discard(), Config{Mode: ModeBatched, WebhookURL: url})
	require.NoError(t, err)

	p.Publish(context.Background(), event(1))
	p.Flush(context.Background())
	assert.Equal(t, 1, p.Pending())

	rcv.status.Store(http.StatusOK)
	p.Flush(context.Background())
	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 1, rcv.count())
}

func TestPublisher_Off(t *testing.T) {
	rcv, url := newReceiver(t)
	p, err := New(logger.Discard(), Config{Mode: ModeOff, WebhookURL: url})
	require.NoError(t, err)

	p.Publish(context.Background(), event(1))
	p.Flush(context.Background())
	assert.Equal(t, 0, rcv.count())
}
