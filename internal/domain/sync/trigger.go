package sync

import (
	"context"
	"fmt"

	"booksync/internal/domain/order"
)

// TriggerResult итог реакции на изменение заказа
type TriggerResult struct {
	OrderID int64          `json:"order_id"`
	Skipped bool           `json:"skipped"`
	Reason  string         `json:"reason,omitempty"`
	Sync    *SyncResult    `json:"sync,omitempty"`
	Payment *PaymentResult `json:"payment,omitempty"`
	Refunds []RefundResult `json:"refunds,omitempty"`
}

// HandleOrder синхронизирует заказ по триггеру его статуса. Для заказа с уже
// выставленным счетом догоняет оплату и новые возвраты.
func (s *Service) HandleOrder(ctx context.Context, o *order.Order) TriggerResult {
	res := TriggerResult{OrderID: o.ID}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		res.Sync = &SyncResult{OrderID: o.ID, Status: StatusFailed, Error: fmt.Sprintf("load settings: %v", err)}
		return res
	}
	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		res.Sync = &SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
		return res
	}

	if state.InvoiceID == "" {
		if !cfg.ShouldSync(o.Status) {
			res.Skipped = true
			res.Reason = fmt.Sprintf("no trigger for status %q", o.Status)
			return res
		}
		r := s.SyncOrder(ctx, o, cfg.AsDraft(o.Status))
		res.Sync = &r
		// оплата при создании счета уже обработана в SyncOrder
		if !r.Success || len(o.Refunds) == 0 {
			return res
		}
	} else if cfg.Payments.AutoApply && state.Status == StatusSynced && state.PaymentID == "" && o.IsPaid() {
		p := s.ApplyPayment(ctx, o)
		res.Payment = &p
	}

	if len(o.Refunds) > 0 {
		res.Refunds = s.SyncNewRefunds(ctx, o)
	}
	if res.Sync == nil && res.Payment == nil && len(res.Refunds) == 0 {
		res.Skipped = true
		res.Reason = "order is already synced"
	}
	return res
}
