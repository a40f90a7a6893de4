package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
)

// FindExistingInvoice ищет счет заказа по reference, затем по номеру счета.
// Проверяются оба идентификатора: исторические счета могли создаваться при любой политике нумерации.
func (s *Service) FindExistingInvoice(ctx context.Context, o *order.Order) (*books.Invoice, error) {
	ref := o.Reference()
	inv, err := s.books.FindInvoiceByReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("find invoice by reference %s: %w", ref, err)
	}
	if inv != nil {
		return inv, nil
	}
	inv, err = s.books.FindInvoiceByNumber(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("find invoice by number %s: %w", ref, err)
	}
	return inv, nil
}

// BuildInvoice переводит заказ в тело запроса создания счета
func (s *Service) BuildInvoice(ctx context.Context, o *order.Order, contactID string, cfg *settings.Settings) (books.InvoiceRequest, error) {
	items := newItemResolver(s.books, cfg.Items)

	lines := make([]books.LineItem, 0, len(o.Items)+len(o.Fees))
	for _, item := range o.Items {
		if item.Quantity.IsZero() {
			continue
		}
		rate := item.Subtotal.Div(item.Quantity).Round(2)
		itemID, err := items.Resolve(ctx, item, rate)
		if err != nil {
			return books.InvoiceRequest{}, err
		}
		line := books.LineItem{
			ItemID:   itemID,
			Name:     item.Name,
			Rate:     rate,
			Quantity: item.Quantity,
		}
		if item.SKU != "" {
			line.Description = "SKU: " + item.SKU
		}
		lines = append(lines, line)
	}
	for _, fee := range o.Fees {
		lines = append(lines, books.LineItem{
			Name:     fee.Name,
			Rate:     fee.Total.Round(2),
			Quantity: decimal.NewFromInt(1),
		})
	}

	ref := o.Reference()
	req := books.InvoiceRequest{
		CustomerID:      contactID,
		Date:            invoiceDate(o).Format(books.DateLayout),
		ReferenceNumber: ref,
		CurrencyCode:    o.Currency,
		LineItems:       lines,
		Notes:           invoiceNotes(o),
		CustomFields:    customFields(o, cfg.Invoices.CustomFields),
	}
	if o.ShippingTotal.IsPositive() {
		req.ShippingCharge = o.ShippingTotal.Round(2)
	}
	if o.DiscountTotal.IsPositive() {
		req.Discount = o.DiscountTotal.Round(2)
		req.DiscountType = "entity_level"
		req.IsDiscountBeforeTax = true
	}
	if cfg.Numbering == settings.NumberingOrderNumber {
		req.InvoiceNumber = ref
		req.ForceNumber = true
	}
	return req, nil
}

// createInvoice создает счет, если у контакта еще нет счета с тем же reference.
// Счет другого покупателя с совпавшим reference не переиспользуется.
func (s *Service) createInvoice(ctx context.Context, o *order.Order, contactID string, cfg *settings.Settings) (*books.Invoice, bool, []string, error) {
	var warnings []string

	existing, err := s.FindExistingInvoice(ctx, o)
	if err != nil {
		return nil, false, nil, err
	}
	if existing != nil && existing.CustomerID == contactID {
		s.log.Info("reusing existing invoice", "order_id", o.ID, "invoice_id", existing.InvoiceID)
		return existing, true, nil, nil
	}

	req, err := s.BuildInvoice(ctx, o, contactID, cfg)
	if err != nil {
		return nil, false, nil, err
	}

	if existing != nil {
		warnings = append(warnings, fmt.Sprintf(
			"invoice %s with reference %s belongs to another customer (%s); a new invoice was created",
			existing.InvoiceNumber, o.Reference(), existing.CustomerID,
		))
		if req.ForceNumber {
			// номер уже занят чужим счетом
			req.InvoiceNumber = ""
			req.ForceNumber = false
			warnings = append(warnings, "order number is already used as an invoice number; falling back to auto numbering")
		}
	}

	inv, err := s.books.CreateInvoice(ctx, req)
	if err != nil {
		return nil, false, warnings, fmt.Errorf("create invoice for order #%s: %w", o.Reference(), err)
	}
	return inv, false, warnings, nil
}

func invoiceDate(o *order.Order) time.Time {
	if o.CreatedAt.IsZero() {
		return time.Now()
	}
	return o.CreatedAt
}

func invoiceNotes(o *order.Order) string {
	notes := "WooCommerce order #" + o.Reference()
	if o.CustomerNote != "" {
		notes += "\n" + o.CustomerNote
	}
	return notes
}

func customFields(o *order.Order, mapping map[string]string) []books.CustomField {
	if len(mapping) == 0 {
		return nil
	}
	fields := make([]books.CustomField, 0, len(mapping))
	for apiName, attr := range mapping {
		var value string
		switch attr {
		case "order_id":
			value = strconv.FormatInt(o.ID, 10)
		case "order_number":
			value = o.Reference()
		case "payment_method":
			value = o.PaymentTitle
		case "transaction_id":
			value = o.TransactionID
		default:
			value = o.MetaValue(attr)
		}
		if value == "" {
			continue
		}
		fields = append(fields, books.CustomField{APIName: apiName, Value: value})
	}
	return fields
}
