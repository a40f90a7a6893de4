package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booksync/internal/domain/reconcile"
	"booksync/internal/domain/retry"
	"booksync/internal/utils/logger"
)

type fakeRetry struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRetry) Run(context.Context) (retry.RunStats, error) {
	f.calls.Add(1)
	return retry.RunStats{}, f.err
}

type fakeReconciler struct {
	mu      sync.Mutex
	windows [][2]time.Time
}

func (f *fakeReconciler) Run(_ context.Context, start, end time.Time) (*reconcile.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, [2]time.Time{start, end})
	return &reconcile.Report{ID: "r-1"}, nil
}

func (f *fakeReconciler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func TestScheduler_Run(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	r := &fakeRetry{err: retry.ErrRemoteUnavailable}
	rec := &fakeReconciler{}

	s := NewScheduler(r, rec, logger.Discard(), &Config{
		RetryInterval:     5 * time.Millisecond,
		ReconcileInterval: 5 * time.Millisecond,
		ReconcileLookback: 48 * time.Hour,
		Now:               func() time.Time { return now },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return r.calls.Load() >= 2 && rec.count() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, now.Add(-48*time.Hour), rec.windows[0][0])
	assert.Equal(t, now, rec.windows[0][1])
}

func TestScheduler_DisabledJobs(t *testing.T) {
	r := &fakeRetry{err: errors.New("should not run")}
	s := NewScheduler(r, nil, logger.Discard(), &Config{})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler with no jobs must return immediately")
	}
	assert.Zero(t, r.calls.Load())
}
