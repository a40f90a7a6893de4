package sync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
)

// ProcessRefund создает кредит-ноту для локального возврата. Зачет в счет и
// возврат денег выполняются по возможности: их ошибки становятся предупреждениями.
func (s *Service) ProcessRefund(ctx context.Context, o *order.Order, refund *order.Refund) RefundResult {
	v, _, _ := s.flight.Do(flightKey("refund", o.ID), func() (any, error) {
		var res RefundResult
		err := s.exclusive(ctx, o.ID, func(ctx context.Context) {
			res = s.processRefund(ctx, o, refund)
		})
		if err != nil {
			return RefundResult{LocalRefundID: refund.ID, Error: err.Error()}, nil
		}
		return res, nil
	})
	res := v.(RefundResult)
	if res.LocalRefundID != refund.ID {
		// схлопнулись с обработкой другого возврата того же заказа
		return s.ProcessRefund(ctx, o, refund)
	}
	return res
}

// SyncNewRefunds обрабатывает все возвраты заказа без сохраненной связи
func (s *Service) SyncNewRefunds(ctx context.Context, o *order.Order) []RefundResult {
	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		return []RefundResult{{Error: err.Error()}}
	}
	var results []RefundResult
	for i := range o.Refunds {
		if _, ok := state.RefundMapping(o.Refunds[i].ID); ok {
			continue
		}
		results = append(results, s.ProcessRefund(ctx, o, &o.Refunds[i]))
	}
	return results
}

func (s *Service) processRefund(ctx context.Context, o *order.Order, refund *order.Refund) RefundResult {
	log := s.log.With("order_id", o.ID, "refund_id", refund.ID)
	result := RefundResult{LocalRefundID: refund.ID}

	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if state.InvoiceID == "" {
		result.Error = ErrNoInvoice.Error()
		return result
	}
	if m, ok := state.RefundMapping(refund.ID); ok {
		result.Success = true
		result.CreditNoteID = m.RemoteCreditNoteID
		result.RefundID = m.RemoteRefundID
		return result
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("load settings: %v", err)
		return result
	}

	amount := refund.Amount.Abs().Round(2)
	if !amount.IsPositive() {
		result.Error = validationErrorf("refund %d has no amount", refund.ID).Error()
		return result
	}

	date := refund.CreatedAt
	if date.IsZero() {
		date = s.config.Now()
	}
	reference := o.Reference() + "-R" + strconv.FormatInt(refund.ID, 10)

	cn, err := s.books.CreateCreditNote(ctx, books.CreditNoteRequest{
		CustomerID:      state.ContactID,
		Date:            date.Format(books.DateLayout),
		ReferenceNumber: reference,
		InvoiceID:       state.InvoiceID,
		LineItems:       refundLines(o, refund, amount),
		Notes:           refund.Reason,
	})
	if err != nil {
		log.Error("failed to create credit note", "error", err)
		s.note(ctx, o.ID, fmt.Sprintf("Zoho Books credit note for refund %d failed: %v", refund.ID, err))
		result.Error = err.Error()
		return result
	}
	result.CreditNoteID = cn.CreditNoteID

	applied := cn.Total
	if !applied.IsPositive() {
		applied = amount
	}
	if err := s.books.ApplyCreditNote(ctx, cn.CreditNoteID, state.InvoiceID, applied); err != nil {
		log.Warn("failed to apply credit note to invoice", "creditnote_id", cn.CreditNoteID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("credit note %s could not be applied to invoice %s: %v", cn.CreditNoteNumber, state.InvoiceNumber, err))
	}

	if refundID, warning := s.cashRefund(ctx, o, cn, applied, date.Format(books.DateLayout), cfg.Payments); warning != "" {
		log.Warn(warning)
		result.Warnings = append(result.Warnings, warning)
	} else {
		result.RefundID = refundID
	}

	state.RefundMappings = append(state.RefundMappings, RefundMapping{
		LocalRefundID:      refund.ID,
		RemoteRefundID:     result.RefundID,
		RemoteCreditNoteID: cn.CreditNoteID,
		CreditNoteNumber:   cn.CreditNoteNumber,
	})
	if err := s.saveState(ctx, state); err != nil {
		log.Error("failed to persist refund mapping", "creditnote_id", cn.CreditNoteID, "error", err)
		result.Warnings = append(result.Warnings, "credit note was created but the refund mapping could not be saved locally")
	}

	message := fmt.Sprintf("Zoho Books credit note %s created for refund of %s %s.", cn.CreditNoteNumber, amount, o.Currency)
	s.note(ctx, o.ID, message)
	s.publish(ctx, Event{
		Type:    EventRefundSynced,
		OrderID: o.ID,
		Message: message,
		Data: map[string]any{
			"refund_id":     refund.ID,
			"creditnote_id": cn.CreditNoteID,
			"amount":        amount.String(),
		},
	})

	result.Success = true
	return result
}

// cashRefund опциональный возврат денег со счета из настроек
func (s *Service) cashRefund(ctx context.Context, o *order.Order, cn *books.CreditNote, amount decimal.Decimal, date string, cfg settings.Payments) (string, string) {
	if !cfg.CreateCashRefund || cfg.RefundAccountID == "" {
		return "", ""
	}
	mode := o.PaymentTitle
	if mode == "" {
		mode = o.PaymentMethod
	}
	refund, err := s.books.CreateCashRefund(ctx, cn.CreditNoteID, books.CashRefundRequest{
		Date:            date,
		RefundMode:      mode,
		Amount:          amount,
		FromAccountID:   cfg.RefundAccountID,
		ReferenceNumber: o.TransactionID,
		Description:     "Refund for WooCommerce order #" + o.Reference(),
	})
	if err != nil {
		return "", fmt.Sprintf("cash refund for credit note %s failed: %v", cn.CreditNoteNumber, err)
	}
	return refund.RefundID, ""
}

// refundLines строки кредит-ноты. Без детализации возврат идет одной строкой;
// если детализация меньше суммы возврата, остаток добавляется отдельной строкой.
func refundLines(o *order.Order, refund *order.Refund, amount decimal.Decimal) []books.LineItem {
	one := decimal.NewFromInt(1)
	lines := make([]books.LineItem, 0, len(refund.Lines)+1)
	itemized := decimal.Zero

	for _, line := range refund.Lines {
		total := line.Total.Abs()
		if total.IsZero() {
			continue
		}
		qty := line.Quantity.Abs()
		if qty.IsZero() {
			qty = one
		}
		rate := total.Div(qty).Round(2)
		lines = append(lines, books.LineItem{Name: line.Name, Rate: rate, Quantity: qty})
		itemized = itemized.Add(rate.Mul(qty))
	}

	if len(lines) == 0 {
		return []books.LineItem{{
			Name:     "Refund for order #" + o.Reference(),
			Rate:     amount,
			Quantity: one,
		}}
	}
	if rest := amount.Sub(itemized).Round(2); rest.IsPositive() {
		lines = append(lines, books.LineItem{Name: "Other refunded amount", Rate: rest, Quantity: one})
	}
	return lines
}
