package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus статус отчета сверки
type ReportStatus string

const (
	StatusRunning   ReportStatus = "running"
	StatusCompleted ReportStatus = "completed"
	StatusFailed    ReportStatus = "failed"
)

// DiscrepancyType класс расхождения
type DiscrepancyType string

const (
	MissingInRemote DiscrepancyType = "missing_in_remote"
	MissingInLocal  DiscrepancyType = "missing_in_local"
	AmountMismatch  DiscrepancyType = "amount_mismatch"
	StatusMismatch  DiscrepancyType = "status_mismatch"
	PaymentMismatch DiscrepancyType = "payment_mismatch"
	RefundMismatch  DiscrepancyType = "refund_mismatch"
)

// Ключи сводки отчета
const (
	SummaryOrdersChecked   = "orders_checked"
	SummaryInvoicesFetched = "invoices_fetched"
	SummaryPaymentsFetched = "payments_fetched"
	SummaryMatched         = "matched"
	SummaryAutoLinked      = "auto_linked"
	SummaryDiscrepancies   = "discrepancies"
	SummaryTotalDifference = "total_difference"
)

// Component разница по одной составляющей итога.
// Difference это вклад составляющей в разницу итогов (local - remote).
type Component struct {
	Name       string          `json:"name"`
	Local      decimal.Decimal `json:"local"`
	Remote     decimal.Decimal `json:"remote"`
	Difference decimal.Decimal `json:"difference"`
	Mismatch   bool            `json:"mismatch"`
}

type Discrepancy struct {
	Type          DiscrepancyType `json:"type"`
	OrderID       int64           `json:"order_id,omitempty"`
	OrderNumber   string          `json:"order_number,omitempty"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	LocalAmount   decimal.Decimal `json:"local_amount"`
	RemoteAmount  decimal.Decimal `json:"remote_amount"`
	Difference    decimal.Decimal `json:"difference"`
	Breakdown     []Component     `json:"breakdown,omitempty"`
	Message       string          `json:"message"`
}

// Report отчет сверки за период. После финализации не изменяется.
type Report struct {
	ID            string             `json:"id"`
	PeriodStart   time.Time          `json:"period_start"`
	PeriodEnd     time.Time          `json:"period_end"`
	Status        ReportStatus       `json:"status"`
	Summary       map[string]float64 `json:"summary"`
	Discrepancies []Discrepancy      `json:"discrepancies"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

// Finalized завершен ли отчет
func (r *Report) Finalized() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Count число расхождений заданного типа
func (r *Report) Count(t DiscrepancyType) int {
	n := 0
	for _, d := range r.Discrepancies {
		if d.Type == t {
			n++
		}
	}
	return n
}

// EngineConfig ограничения обхода страниц
type EngineConfig struct {
	InvoicePages  int
	PaymentPages  int
	PerPage       int
	OrderPages    int
	OrdersPerPage int
	Now           func() time.Time
	NewID         func() string
}
