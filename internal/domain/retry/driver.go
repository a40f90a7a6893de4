package retry

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/domain/order"
	"booksync/internal/domain/sync"
)

// Syncer повторная синхронизация заказа
type Syncer interface {
	RetrySync(ctx context.Context, o *order.Order) sync.SyncResult
}

// Prober проверка связи с удаленным API
type Prober interface {
	Ping(ctx context.Context) error
}

// RunStats итог одного прогона
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type DriverConfig struct {
	BatchSize int
	// HealthTTL время жизни результата проверки связи
	HealthTTL time.Duration
	Now       func() time.Time
}

type Dependencies struct {
	States   sync.StateRepository
	Orders   order.Source
	Syncer   Syncer
	Settings sync.SettingsProvider
	Probe    Prober
}

// Driver выбирает неудачные заказы и повторяет те, для которых подошло время
type Driver struct {
	deps   Dependencies
	log    *slog.Logger
	config *DriverConfig

	mu        stdsync.Mutex
	isHealthy bool
	checkedAt time.Time
}

func NewDriver(deps Dependencies, log *slog.Logger, config *DriverConfig) *Driver {
	if config == nil {
		config = &DriverConfig{}
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if config.HealthTTL <= 0 {
		config.HealthTTL = 5 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Driver{
		deps:   deps,
		log:    log.With("component", "retry_driver"),
		config: config,
	}
}

// Run один прогон пакета. При недоступном API возвращает ErrRemoteUnavailable.
func (d *Driver) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	cfg, err := d.deps.Settings.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("load settings: %w", err)
	}
	policy := PolicyFrom(cfg.Retry)
	if policy.Mode == ModeManual {
		d.log.Debug("automatic retries are disabled")
		return stats, nil
	}

	if !d.checkHealth(ctx) {
		return stats, ErrRemoteUnavailable
	}

	states, err := d.deps.States.ListByStatus(ctx, sync.StatusFailed, d.config.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list failed orders: %w", err)
	}

	now := d.config.Now()
	for _, state := range states {
		if ctx.Err() != nil {
			break
		}
		if !d.eligible(policy, state, now) {
			stats.Skipped++
			continue
		}

		o, err := d.deps.Orders.GetOrder(ctx, state.OrderID)
		if err != nil {
			d.log.Warn("failed to load order for retry", "order_id", state.OrderID, "error", err)
			stats.Skipped++
			continue
		}

		stats.Processed++
		res := d.deps.Syncer.RetrySync(ctx, o)
		if res.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	d.log.Info("retry batch finished",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// eligible ошибки валидации требуют человека и автоматически не повторяются
func (d *Driver) eligible(policy Policy, state *sync.State, now time.Time) bool {
	if state.ErrorKind == sync.ErrorKindValidation {
		return false
	}
	return policy.CanRetry(state) && policy.ShouldRetryNow(state, now)
}

// checkHealth результат проверки связи кешируется на HealthTTL
func (d *Driver) checkHealth(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.config.Now()
	if !d.checkedAt.IsZero() && now.Sub(d.checkedAt) < d.config.HealthTTL {
		return d.isHealthy
	}

	err := d.deps.Probe.Ping(ctx)
	d.isHealthy = err == nil
	d.checkedAt = now
	if err != nil {
		d.log.Warn("zoho books health check failed", "error", err)
	}
	return d.isHealthy
}
