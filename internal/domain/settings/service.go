package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"
)

// ключи опций, по одному на раздел
const (
	keyTriggers       = "booksync_triggers"
	keyRetry          = "booksync_retry_policy"
	keyNumbering      = "booksync_numbering"
	keyPayments       = "booksync_payments"
	keyItems          = "booksync_items"
	keyInvoices       = "booksync_invoices"
	keyReconciliation = "booksync_reconciliation"
)

// Servicer интерфейс сервиса настроек
type Servicer interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "settings"),
	}
}

// Load читает настройки поверх значений по умолчанию.
// Поврежденный раздел пропускается с предупреждением.
func (s *Service) Load(ctx context.Context) (*Settings, error) {
	cfg := Default()

	sections := []struct {
		key    string
		decode func(raw string) error
	}{
		{keyTriggers, func(raw string) error { return decodeMap(raw, &cfg.Triggers) }},
		{keyRetry, func(raw string) error { return decodeOver(raw, &cfg.Retry) }},
		{keyNumbering, func(raw string) error { return decodeOver(raw, &cfg.Numbering) }},
		{keyPayments, func(raw string) error { return decodeOver(raw, &cfg.Payments) }},
		{keyItems, func(raw string) error { return decodeOver(raw, &cfg.Items) }},
		{keyInvoices, func(raw string) error { return decodeOver(raw, &cfg.Invoices) }},
		{keyReconciliation, func(raw string) error { return decodeOver(raw, &cfg.Reconciliation) }},
	}

	for _, section := range sections {
		raw, ok, err := s.repo.Get(ctx, section.key)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings %s: %w", section.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		if err := section.decode(raw); err != nil {
			s.log.Warn("ignoring corrupted settings section", "key", section.key, "error", err)
		}
	}

	if cfg.Payments.Accounts == nil {
		cfg.Payments.Accounts = map[string]string{}
	}
	if cfg.Triggers == nil {
		cfg.Triggers = map[string]TriggerAction{}
	}
	if cfg.Invoices.CustomFields == nil {
		cfg.Invoices.CustomFields = map[string]string{}
	}
	return cfg, nil
}

// decodeOver декодирует поверх текущего значения, сохраняя значения по умолчанию
// для отсутствующих полей. При ошибке dst не меняется.
func decodeOver[T any](raw string, dst *T) error {
	v := *dst
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// decodeMap заменяет карту целиком, без слияния с умолчаниями
func decodeMap[K comparable, V any](raw string, dst *map[K]V) error {
	var v map[K]V
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

// Save валидирует и записывает все разделы
func (s *Service) Save(ctx context.Context, cfg *Settings) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	sections := map[string]any{
		keyTriggers:       cfg.Triggers,
		keyRetry:          cfg.Retry,
		keyNumbering:      cfg.Numbering,
		keyPayments:       cfg.Payments,
		keyItems:          cfg.Items,
		keyInvoices:       cfg.Invoices,
		keyReconciliation: cfg.Reconciliation,
	}
	for key, value := range sections {
		payload, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal settings %s: %w", key, err)
		}
		if err := s.repo.Set(ctx, key, string(payload)); err != nil {
			return fmt.Errorf("failed to save settings %s: %w", key, err)
		}
	}
	s.log.Info("settings saved")
	return nil
}

// Validate проверяет согласованность настроек
func Validate(cfg *Settings) error {
	for status, action := range cfg.Triggers {
		if action != ActionDraft && action != ActionSubmit {
			return fmt.Errorf("%w: unknown action %q for status %q", ErrInvalidSettings, action, status)
		}
	}
	switch cfg.Retry.Mode {
	case "manual", "max_retries", "indefinite":
	default:
		return fmt.Errorf("%w: unknown retry mode %q", ErrInvalidSettings, cfg.Retry.Mode)
	}
	if cfg.Retry.MaxCount < 0 || cfg.Retry.BackoffMinutes < 0 || cfg.Retry.MaxBackoffMinutes < 0 {
		return fmt.Errorf("%w: retry values must not be negative", ErrInvalidSettings)
	}
	if cfg.Numbering != NumberingAuto && cfg.Numbering != NumberingOrderNumber {
		return fmt.Errorf("%w: unknown numbering policy %q", ErrInvalidSettings, cfg.Numbering)
	}
	if cfg.Reconciliation.Tolerance.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalidSettings)
	}
	return nil
}
