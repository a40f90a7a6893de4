package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	stdsync "sync"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/domain/sync"
)

// Режимы доставки уведомлений
const (
	ModeOff       = "off"
	ModeImmediate = "immediate"
	ModeBatched   = "batched"
)

var ErrUnknownMode = errors.New("unknown notification mode")

type Config struct {
	Mode       string
	WebhookURL string
	// FlushInterval период отправки накопленных событий в режиме batched
	FlushInterval time.Duration
	// MaxBatch размер пакета, при котором отправка происходит сразу
	MaxBatch   int
	HTTPClient *http.Client
}

// Publisher получатель доменных событий: пишет их в лог и, если задан
// адрес, отправляет POST на вебхук сразу или пакетами
type Publisher struct {
	cfg  Config
	log  *slog.Logger
	http *http.Client

	mu      stdsync.Mutex
	pending []sync.Event
}

var _ sync.Publisher = (*Publisher)(nil)

func New(log *slog.Logger, cfg Config) (*Publisher, error) {
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeOff
	case ModeOff, ModeImmediate, ModeBatched:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Hour
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 100
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Publisher{
		cfg:  cfg,
		log:  log.With("component", "notify"),
		http: client,
	}, nil
}

func (p *Publisher) Mode() string {
	return p.cfg.Mode
}

func (p *Publisher) Publish(ctx context.Context, event sync.Event) {
	level := slog.LevelInfo
	if event.Type == sync.EventOrderSyncFailed {
		level = slog.LevelWarn
	}
	p.log.Log(ctx, level, event.Message, "event", event.Type, "order_id", event.OrderID)

	switch p.cfg.Mode {
	case ModeImmediate:
		if err := p.send(ctx, []sync.Event{event}); err != nil {
			p.log.Error("failed to deliver notification", "event", event.Type, "order_id", event.OrderID, "error", err)
		}
	case ModeBatched:
		p.mu.Lock()
		p.pending = append(p.pending, event)
		full := len(p.pending) >= p.cfg.MaxBatch
		p.mu.Unlock()
		if full {
			p.Flush(ctx)
		}
	}
}

// Pending число накопленных событий
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush отправляет накопленные события одним запросом. При ошибке события
// возвращаются в очередь.
func (p *Publisher) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := p.send(ctx, batch); err != nil {
		p.log.Error("failed to deliver notification batch", "events", len(batch), "error", err)
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.mu.Unlock()
		return
	}
	p.log.Info("notification batch delivered", "events", len(batch))
}

// Run периодически отправляет пакеты до отмены контекста
func (p *Publisher) Run(ctx context.Context) {
	if p.cfg.Mode != ModeBatched {
		return
	}
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

type payload struct {
	Events []sync.Event `json:"events"`
	SentAt time.Time    `json:"sent_at"`
}

func (p *Publisher) send(ctx context.Context, events []sync.Event) error {
	if p.cfg.WebhookURL == "" {
		return nil
	}
	body, err := json.Marshal(payload{Events: events, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
