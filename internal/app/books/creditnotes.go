package books

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

func (c *Client) CreateCreditNote(ctx context.Context, req CreditNoteRequest) (*CreditNote, error) {
	var resp struct {
		CreditNote CreditNote `json:"creditnote"`
	}
	if err := c.call(ctx, Op{Endpoint: "creditnotes.create", EntityID: req.ReferenceNumber}, http.MethodPost, "/creditnotes", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.CreditNote, nil
}

// ApplyCreditNote зачитывает кредит-ноту в счет. Сначала через ресурс кредит-ноты,
// затем через ресурс счета: доступность эндпоинтов зависит от прав организации.
func (c *Client) ApplyCreditNote(ctx context.Context, creditNoteID, invoiceID string, amount decimal.Decimal) error {
	op := Op{Endpoint: "creditnotes.apply", EntityID: creditNoteID}

	byCreditNote := map[string]any{
		"invoices": []PaymentInvoice{{InvoiceID: invoiceID, AmountApplied: amount}},
	}
	firstErr := c.call(ctx, op, http.MethodPost, "/creditnotes/"+url.PathEscape(creditNoteID)+"/invoices", nil, byCreditNote, nil)
	if firstErr == nil {
		return nil
	}

	byInvoice := map[string]any{
		"apply_creditnotes": []map[string]any{
			{"creditnote_id": creditNoteID, "amount_applied": amount},
		},
	}
	op.Endpoint = "invoices.apply_credits"
	if err := c.call(ctx, op, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/credits", nil, byInvoice, nil); err != nil {
		return fmt.Errorf("apply credit note %s: %w (first attempt: %v)", creditNoteID, err, firstErr)
	}
	return nil
}

// CreateCashRefund фактический возврат денег по кредит-ноте
func (c *Client) CreateCashRefund(ctx context.Context, creditNoteID string, req CashRefundRequest) (*CashRefund, error) {
	var resp struct {
		Refund CashRefund `json:"creditnote_refund"`
	}
	if err := c.call(ctx, Op{Endpoint: "creditnotes.refund", EntityID: creditNoteID}, http.MethodPost, "/creditnotes/"+url.PathEscape(creditNoteID)+"/refunds", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Refund, nil
}
