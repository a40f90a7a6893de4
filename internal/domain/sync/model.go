package sync

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status состояние синхронизации заказа
type Status string

const (
	StatusUnsynced Status = "unsynced"
	StatusPending  Status = "pending"
	StatusSynced   Status = "synced"
	StatusDraft    Status = "draft"
	StatusFailed   Status = "failed"
)

// ErrorKind класс последней ошибки, от него зависит автоматический повтор
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindConfig     ErrorKind = "not_configured"
	ErrorKindRateLimit  ErrorKind = "rate_limit"
	ErrorKindRemote     ErrorKind = "remote"
)

// RefundMapping связь локального возврата с кредит-нотой
type RefundMapping struct {
	LocalRefundID      int64  `json:"local_refund_id"`
	RemoteRefundID     string `json:"remote_refund_id,omitempty"`
	RemoteCreditNoteID string `json:"remote_creditnote_id"`
	CreditNoteNumber   string `json:"creditnote_number,omitempty"`
}

// State контрольная точка синхронизации, 1:1 с заказом.
// InvoiceID != "" только в статусах synced и draft; PaymentID только при InvoiceID.
type State struct {
	OrderID         int64           `json:"order_id"`
	Status          Status          `json:"status"`
	InvoiceID       string          `json:"invoice_id,omitempty"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	ContactID       string          `json:"contact_id,omitempty"`
	ContactName     string          `json:"contact_name,omitempty"`
	PaymentID       string          `json:"payment_id,omitempty"`
	PaymentNumber   string          `json:"payment_number,omitempty"`
	RetryCount      int             `json:"retry_count"`
	LastSyncAttempt *time.Time      `json:"last_sync_attempt,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	ErrorKind       ErrorKind       `json:"error_kind,omitempty"`
	RefundMappings  []RefundMapping `json:"refund_mappings,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewState состояние заказа, который еще не синхронизировался
func NewState(orderID int64) *State {
	return &State{OrderID: orderID, Status: StatusUnsynced}
}

// RefundMapping связь для локального возврата
func (s *State) RefundMapping(localRefundID int64) (RefundMapping, bool) {
	for _, m := range s.RefundMappings {
		if m.LocalRefundID == localRefundID {
			return m, true
		}
	}
	return RefundMapping{}, false
}

// SyncResult результат синхронизации заказа
type SyncResult struct {
	Success   bool           `json:"success"`
	OrderID   int64          `json:"order_id"`
	InvoiceID string         `json:"invoice_id,omitempty"`
	ContactID string         `json:"contact_id,omitempty"`
	Status    Status         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// PaymentResult результат применения оплаты. PaymentID пуст для no-op.
type PaymentResult struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"payment_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Error     string          `json:"error,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// RefundResult результат обработки возврата
type RefundResult struct {
	Success       bool     `json:"success"`
	LocalRefundID int64    `json:"local_refund_id"`
	CreditNoteID  string   `json:"creditnote_id,omitempty"`
	RefundID      string   `json:"refund_id,omitempty"`
	Error         string   `json:"error,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ConflictReport результат проверки конфликтов, без изменений состояния
type ConflictReport struct {
	HasConflict      bool   `json:"has_conflict"`
	InvoiceID        string `json:"invoice_id,omitempty"`
	InvoiceNumber    string `json:"invoice_number,omitempty"`
	InvoiceStatus    string `json:"invoice_status,omitempty"`
	InvoiceCustomer  string `json:"invoice_customer_id,omitempty"`
	ContactID        string `json:"contact_id,omitempty"`
	ContactCurrency  string `json:"contact_currency,omitempty"`
	OrderCurrency    string `json:"order_currency"`
	CurrencyMismatch bool   `json:"currency_mismatch"`
}

// BulkResult итог массовой синхронизации
type BulkResult struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Results   []SyncResult `json:"results"`
}

// Типы доменных событий
const (
	EventOrderSynced     = "order_synced"
	EventOrderSyncFailed = "order_sync_failed"
	EventPaymentApplied  = "payment_applied"
	EventRefundSynced    = "refund_synced"
)

// Event доменное событие для уведомлений
type Event struct {
	Type    string         `json:"type"`
	OrderID int64          `json:"order_id"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Time    time.Time      `json:"time"`
}

// ServiceConfig конфигурация сервиса синхронизации
type ServiceConfig struct {
	// BulkDelay пауза между заказами в BulkSync
	BulkDelay time.Duration
	Now       func() time.Time
}
