package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/domain/reconcile"
	"booksync/internal/domain/retry"
)

// RetryRunner прогон пакета повторов
type RetryRunner interface {
	Run(ctx context.Context) (retry.RunStats, error)
}

// Reconciler запуск сверки за период
type Reconciler interface {
	Run(ctx context.Context, start, end time.Time) (*reconcile.Report, error)
}

type Config struct {
	RetryInterval     time.Duration
	ReconcileInterval time.Duration
	// ReconcileLookback длина сверяемого окна, заканчивающегося текущим моментом
	ReconcileLookback time.Duration
	Now               func() time.Time
}

// Scheduler периодически запускает повторы и сверку.
// Нулевой интервал отключает соответствующую задачу.
type Scheduler struct {
	retry     RetryRunner
	reconcile Reconciler
	log       *slog.Logger
	config    *Config
}

func NewScheduler(retry RetryRunner, reconciler Reconciler, log *slog.Logger, config *Config) *Scheduler {
	if config == nil {
		config = &Config{}
	}
	if config.ReconcileLookback <= 0 {
		config.ReconcileLookback = 7 * 24 * time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Scheduler{
		retry:     retry,
		reconcile: reconciler,
		log:       log.With("component", "scheduler"),
		config:    config,
	}
}

// Run блокируется до отмены ctx
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if s.retry != nil && s.config.RetryInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "retry", s.config.RetryInterval, s.runRetry)
		}()
	}
	if s.reconcile != nil && s.config.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "reconcile", s.config.ReconcileInterval, s.runReconcile)
		}()
	}

	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, job func(context.Context)) {
	s.log.Info("job started", "job", name, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("job stopped", "job", name)
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

func (s *Scheduler) runRetry(ctx context.Context) {
	if _, err := s.retry.Run(ctx); err != nil {
		if errors.Is(err, retry.ErrRemoteUnavailable) {
			s.log.Warn("retry batch skipped", "error", err)
			return
		}
		s.log.Error("retry batch failed", "error", err)
	}
}

func (s *Scheduler) runReconcile(ctx context.Context) {
	end := s.config.Now().UTC()
	start := end.Add(-s.config.ReconcileLookback)

	report, err := s.reconcile.Run(ctx, start, end)
	if err != nil {
		s.log.Error("scheduled reconciliation failed", "error", err)
		return
	}
	s.log.Info("scheduled reconciliation finished",
		"report_id", report.ID,
		"discrepancies", len(report.Discrepancies),
	)
}
