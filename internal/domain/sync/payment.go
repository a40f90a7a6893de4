package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
)

// ApplyPayment записывает оплату по счету заказа. Сумма оплаты равна
// min(итог заказа, остаток счета), повторный вызов оплату не дублирует.
func (s *Service) ApplyPayment(ctx context.Context, o *order.Order) PaymentResult {
	v, _, _ := s.flight.Do(flightKey("payment", o.ID), func() (any, error) {
		var res PaymentResult
		err := s.exclusive(ctx, o.ID, func(ctx context.Context) {
			state, err := s.loadState(ctx, o.ID)
			if err != nil {
				res = PaymentResult{Error: err.Error()}
				return
			}
			cfg, err := s.settings.Load(ctx)
			if err != nil {
				res = PaymentResult{Error: fmt.Sprintf("load settings: %v", err)}
				return
			}
			res = s.applyPayment(ctx, o, state, cfg)
		})
		if err != nil {
			return PaymentResult{Error: err.Error()}, nil
		}
		return res, nil
	})
	return v.(PaymentResult)
}

func (s *Service) applyPayment(ctx context.Context, o *order.Order, state *State, cfg *settings.Settings) PaymentResult {
	log := s.log.With("order_id", o.ID)

	if state.InvoiceID == "" {
		return PaymentResult{Error: ErrNoInvoice.Error()}
	}
	if !o.Total.IsPositive() {
		return PaymentResult{Success: true, Amount: decimal.Zero}
	}
	if state.PaymentID != "" {
		return PaymentResult{Success: true, PaymentID: state.PaymentID}
	}

	inv, err := s.books.GetInvoice(ctx, state.InvoiceID)
	if err != nil {
		return s.paymentFailed(ctx, o, fmt.Errorf("load invoice %s: %w", state.InvoiceID, err))
	}

	switch inv.Status {
	case books.InvoiceVoid:
		return s.paymentFailed(ctx, o, validationErrorf("invoice %s is void and cannot receive a payment", inv.InvoiceNumber))
	case books.InvoiceDraft:
		return s.paymentFailed(ctx, o, validationErrorf("invoice %s is still a draft; mark it as sent before applying a payment", inv.InvoiceNumber))
	}
	if inv.Status == books.InvoicePaid || !inv.Balance.IsPositive() {
		log.Info("invoice already paid, skipping payment", "invoice_id", inv.InvoiceID)
		return PaymentResult{Success: true, Amount: decimal.Zero, Warnings: []string{"invoice is already paid"}}
	}

	amount := decimal.Min(o.Total, inv.Balance).Round(2)

	var warnings []string
	bankCharges, feeWarning := gatewayFee(o, cfg.Payments.GatewayFee)
	if feeWarning != "" {
		warnings = append(warnings, feeWarning)
		log.Warn(feeWarning)
	}
	if bankCharges.GreaterThan(amount) {
		warnings = append(warnings, fmt.Sprintf("gateway fee %s exceeds payment amount %s and was dropped", bankCharges, amount))
		bankCharges = decimal.Zero
	}

	customerID := inv.CustomerID
	if customerID == "" {
		customerID = state.ContactID
	}
	mode := o.PaymentTitle
	if mode == "" {
		mode = o.PaymentMethod
	}

	req := books.PaymentRequest{
		CustomerID:      customerID,
		PaymentMode:     mode,
		Amount:          amount,
		Date:            paymentDate(o, s.config.Now()),
		ReferenceNumber: o.TransactionID,
		Description:     "Payment for WooCommerce order #" + o.Reference(),
		AccountID:       cfg.DepositAccount(o.PaymentMethod),
		BankCharges:     bankCharges,
		Invoices:        []books.PaymentInvoice{{InvoiceID: inv.InvoiceID, AmountApplied: amount}},
	}

	payment, err := s.books.CreatePayment(ctx, req)
	if err != nil {
		return s.paymentFailed(ctx, o, fmt.Errorf("create payment: %w", err))
	}

	state.PaymentID = payment.PaymentID
	state.PaymentNumber = payment.PaymentNumber
	if err := s.saveState(ctx, state); err != nil {
		// оплата создана, но не сохранена: следующая попытка найдет остаток 0
		log.Error("failed to persist payment id", "payment_id", payment.PaymentID, "error", err)
		warnings = append(warnings, "payment was created but could not be saved locally")
	}

	message := fmt.Sprintf("Zoho Books payment %s of %s %s applied to invoice %s.", payment.PaymentNumber, amount, o.Currency, inv.InvoiceNumber)
	s.note(ctx, o.ID, message)
	s.publish(ctx, Event{
		Type:    EventPaymentApplied,
		OrderID: o.ID,
		Message: message,
		Data:    map[string]any{"payment_id": payment.PaymentID, "amount": amount.String(), "invoice_id": inv.InvoiceID},
	})

	log.Info("payment applied", "payment_id", payment.PaymentID, "amount", amount.String())
	return PaymentResult{Success: true, PaymentID: payment.PaymentID, Amount: amount, Warnings: warnings}
}

func (s *Service) paymentFailed(ctx context.Context, o *order.Order, err error) PaymentResult {
	s.log.Error("payment failed", "order_id", o.ID, "error", err)
	s.note(ctx, o.ID, "Zoho Books payment failed: "+err.Error())
	return PaymentResult{Error: err.Error()}
}

// gatewayFee комиссия шлюза в валюте заказа. Если комиссия в другой валюте,
// курс выводится как (net + fee) / total; когда его не вывести, комиссия отбрасывается.
func gatewayFee(o *order.Order, keys settings.GatewayFee) (decimal.Decimal, string) {
	raw := o.MetaValue(keys.FeeKey)
	if raw == "" {
		return decimal.Zero, ""
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil || fee.IsNegative() {
		return decimal.Zero, fmt.Sprintf("gateway fee %q is not a valid amount and was dropped", raw)
	}
	if fee.IsZero() {
		return decimal.Zero, ""
	}

	feeCurrency := o.MetaValue(keys.CurrencyKey)
	if feeCurrency == "" || strings.EqualFold(feeCurrency, o.Currency) {
		return fee.Round(2), ""
	}

	net, err := decimal.NewFromString(o.MetaValue(keys.NetKey))
	if err != nil || !o.Total.IsPositive() {
		return decimal.Zero, fmt.Sprintf("gateway fee in %s dropped: exchange rate to %s cannot be derived", feeCurrency, o.Currency)
	}
	rate := net.Add(fee).Div(o.Total)
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Sprintf("gateway fee in %s dropped: exchange rate to %s cannot be derived", feeCurrency, o.Currency)
	}
	return fee.Div(rate).Round(2), ""
}

func paymentDate(o *order.Order, now time.Time) string {
	if o.PaidAt != nil {
		return o.PaidAt.Format(books.DateLayout)
	}
	return now.Format(books.DateLayout)
}
