package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Статусы заказа WooCommerce
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusOnHold     = "on-hold"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
)

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName имя и фамилия через пробел
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	// Subtotal сумма строки до скидок
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
	Tax      decimal.Decimal `json:"total_tax"`
}

// Fee непродуктовая строка заказа
type Fee struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

type RefundLine struct {
	ID         int64           `json:"id"`
	LineItemID int64           `json:"line_item_id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Quantity   decimal.Decimal `json:"quantity"`
	// Total сумма возврата по строке, положительная
	Total decimal.Decimal `json:"total"`
}

type Refund struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"date_created"`
	Lines     []RefundLine    `json:"line_items"`
}

type Order struct {
	ID            int64             `json:"id"`
	Number        string            `json:"number"`
	Status        string            `json:"status"`
	Currency      string            `json:"currency"`
	CreatedAt     time.Time         `json:"date_created"`
	PaidAt        *time.Time        `json:"date_paid,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	PaymentTitle  string            `json:"payment_method_title"`
	TransactionID string            `json:"transaction_id"`
	CustomerNote  string            `json:"customer_note"`
	Billing       Address           `json:"billing"`
	Shipping      Address           `json:"shipping"`
	Items         []LineItem        `json:"line_items"`
	Fees          []Fee             `json:"fee_lines"`
	Refunds       []Refund          `json:"refunds"`
	ShippingTotal decimal.Decimal   `json:"shipping_total"`
	DiscountTotal decimal.Decimal   `json:"discount_total"`
	TotalTax      decimal.Decimal   `json:"total_tax"`
	Total         decimal.Decimal   `json:"total"`
	Meta          map[string]string `json:"meta"`
}

// IsPaid оплачен ли заказ
func (o *Order) IsPaid() bool {
	if o.PaidAt != nil {
		return true
	}
	return o.Status == StatusProcessing || o.Status == StatusCompleted
}

// Email адрес покупателя, в нижнем регистре
func (o *Order) Email() string {
	return strings.ToLower(strings.TrimSpace(o.Billing.Email))
}

// CustomerName имя для контакта: ФИО, компания или email
func (o *Order) CustomerName() string {
	if name := o.Billing.FullName(); name != "" {
		return name
	}
	if o.Billing.Company != "" {
		return o.Billing.Company
	}
	return o.Email()
}

// Reference номер заказа для поиска на удаленной стороне
func (o *Order) Reference() string {
	if o.Number != "" {
		return o.Number
	}
	return strconv.FormatInt(o.ID, 10)
}

// ItemsSubtotal сумма строк товаров до скидок
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal)
	}
	return sum
}

// FeesTotal сумма непродуктовых строк
func (o *Order) FeesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, fee := range o.Fees {
		sum = sum.Add(fee.Total)
	}
	return sum
}

// RefundedTotal сумма всех возвратов
func (o *Order) RefundedTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range o.Refunds {
		sum = sum.Add(r.Amount.Abs())
	}
	return sum
}

// MetaValue значение метаданных или ""
func (o *Order) MetaValue(key string) string {
	if o.Meta == nil || key == "" {
		return ""
	}
	return o.Meta[key]
}
