package commerce

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"booksync/internal/domain/order"
)

// wooTimeLayout даты *_gmt приходят без зоны
const wooTimeLayout = "2006-01-02T15:04:05"

// wooTime время WooCommerce в UTC; null и пустая строка дают нулевое значение
type wooTime struct {
	time.Time
}

func (t *wooTime) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		t.Time = time.Time{}
		return nil
	}
	s := strings.TrimSuffix(*raw, "Z")
	parsed, err := time.ParseInLocation(wooTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse woocommerce time %q: %w", *raw, err)
	}
	t.Time = parsed
	return nil
}

type wooMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type wooLineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
	TotalTax  decimal.Decimal `json:"total_tax"`
	Meta      []wooMeta       `json:"meta_data"`
}

type wooFee struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

type wooRefundSummary struct {
	ID     int64           `json:"id"`
	Reason string          `json:"reason"`
	Total  decimal.Decimal `json:"total"`
}

type wooOrder struct {
	ID            int64              `json:"id"`
	Number        string             `json:"number"`
	Status        string             `json:"status"`
	Currency      string             `json:"currency"`
	DateCreated   wooTime            `json:"date_created_gmt"`
	DatePaid      wooTime            `json:"date_paid_gmt"`
	PaymentMethod string             `json:"payment_method"`
	PaymentTitle  string             `json:"payment_method_title"`
	TransactionID string             `json:"transaction_id"`
	CustomerNote  string             `json:"customer_note"`
	Billing       order.Address      `json:"billing"`
	Shipping      order.Address      `json:"shipping"`
	LineItems     []wooLineItem      `json:"line_items"`
	FeeLines      []wooFee           `json:"fee_lines"`
	Refunds       []wooRefundSummary `json:"refunds"`
	ShippingTotal decimal.Decimal    `json:"shipping_total"`
	DiscountTotal decimal.Decimal    `json:"discount_total"`
	TotalTax      decimal.Decimal    `json:"total_tax"`
	Total         decimal.Decimal    `json:"total"`
	Meta          []wooMeta          `json:"meta_data"`
}

type wooRefund struct {
	ID          int64         `json:"id"`
	DateCreated wooTime       `json:"date_created_gmt"`
	Amount      string        `json:"amount"`
	Reason      string        `json:"reason"`
	LineItems   []wooLineItem `json:"line_items"`
}

type wooNote struct {
	Note string `json:"note"`
}

func (w *wooOrder) toOrder() *order.Order {
	o := &order.Order{
		ID:            w.ID,
		Number:        w.Number,
		Status:        w.Status,
		Currency:      strings.ToUpper(w.Currency),
		CreatedAt:     w.DateCreated.Time,
		PaymentMethod: w.PaymentMethod,
		PaymentTitle:  w.PaymentTitle,
		TransactionID: w.TransactionID,
		CustomerNote:  w.CustomerNote,
		Billing:       w.Billing,
		Shipping:      w.Shipping,
		ShippingTotal: w.ShippingTotal,
		DiscountTotal: w.DiscountTotal,
		TotalTax:      w.TotalTax,
		Total:         w.Total,
		Meta:          metaMap(w.Meta),
	}
	if !w.DatePaid.IsZero() {
		paid := w.DatePaid.Time
		o.PaidAt = &paid
	}
	for _, li := range w.LineItems {
		o.Items = append(o.Items, order.LineItem{
			ID:        li.ID,
			Name:      li.Name,
			SKU:       li.SKU,
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Subtotal:  li.Subtotal,
			Total:     li.Total,
			Tax:       li.TotalTax,
		})
	}
	for _, fee := range w.FeeLines {
		o.Fees = append(o.Fees, order.Fee{ID: fee.ID, Name: fee.Name, Total: fee.Total})
	}
	for _, r := range w.Refunds {
		o.Refunds = append(o.Refunds, order.Refund{ID: r.ID, Reason: r.Reason, Amount: r.Total.Abs()})
	}
	return o
}

func (w *wooRefund) toRefund() (*order.Refund, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(w.Amount))
	if err != nil {
		return nil, fmt.Errorf("refund %d amount %q: %w", w.ID, w.Amount, err)
	}
	r := &order.Refund{
		ID:        w.ID,
		Amount:    amount.Abs(),
		Reason:    w.Reason,
		CreatedAt: w.DateCreated.Time,
	}
	for _, li := range w.LineItems {
		line := order.RefundLine{
			ID:       li.ID,
			Name:     li.Name,
			SKU:      li.SKU,
			Quantity: li.Quantity.Abs(),
			Total:    li.Total.Abs(),
		}
		if id, ok := metaMap(li.Meta)["_refunded_item_id"]; ok {
			_, _ = fmt.Sscan(id, &line.LineItemID)
		}
		r.Lines = append(r.Lines, line)
	}
	return r, nil
}

// metaMap meta_data в плоскую карту; нестроковые значения сериализуются в JSON
func metaMap(meta []wooMeta) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for _, m := range meta {
		switch v := m.Value.(type) {
		case string:
			out[m.Key] = v
		case nil:
			out[m.Key] = ""
		case float64:
			out[m.Key] = decimal.NewFromFloat(v).String()
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[m.Key] = string(raw)
		}
	}
	return out
}
