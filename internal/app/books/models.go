package books

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Zoho Books ожидает суммы числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true
}

// Статусы счетов
const (
	InvoiceDraft         = "draft"
	InvoiceSent          = "sent"
	InvoicePaid          = "paid"
	InvoicePartiallyPaid = "partially_paid"
	InvoiceOverdue       = "overdue"
	InvoiceVoid          = "void"
)

// DateLayout формат дат Zoho Books
const DateLayout = "2006-01-02"

type PageContext struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	HasMorePage bool `json:"has_more_page"`
}

type Address struct {
	Attention string `json:"attention,omitempty"`
	Address   string `json:"address,omitempty"`
	Street2   string `json:"street2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type ContactPerson struct {
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	IsPrimaryContact bool   `json:"is_primary_contact,omitempty"`
}

type Contact struct {
	ContactID       string          `json:"contact_id,omitempty"`
	ContactName     string          `json:"contact_name"`
	CompanyName     string          `json:"company_name,omitempty"`
	ContactType     string          `json:"contact_type,omitempty"`
	Email           string          `json:"email,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	CurrencyID      string          `json:"currency_id,omitempty"`
	CurrencyCode    string          `json:"currency_code,omitempty"`
	BillingAddress  *Address        `json:"billing_address,omitempty"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"`
	ContactPersons  []ContactPerson `json:"contact_persons,omitempty"`
}

// ContactUpdate изменяемые поля контакта. Валюта сюда не входит.
type ContactUpdate struct {
	ContactName     string   `json:"contact_name,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	BillingAddress  *Address `json:"billing_address,omitempty"`
	ShippingAddress *Address `json:"shipping_address,omitempty"`
}

type Currency struct {
	CurrencyID     string `json:"currency_id"`
	CurrencyCode   string `json:"currency_code"`
	CurrencyName   string `json:"currency_name"`
	IsBaseCurrency bool   `json:"is_base_currency"`
}

type Item struct {
	ItemID      string          `json:"item_id,omitempty"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	ProductType string          `json:"product_type,omitempty"`
}

type LineItem struct {
	LineItemID  string          `json:"line_item_id,omitempty"`
	ItemID      string          `json:"item_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	Quantity    decimal.Decimal `json:"quantity"`
	ItemTotal   decimal.Decimal `json:"item_total"`
}

type CustomField struct {
	APIName string `json:"api_name,omitempty"`
	Label   string `json:"label,omitempty"`
	Value   string `json:"value"`
}

type Invoice struct {
	InvoiceID       string          `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	ReferenceNumber string          `json:"reference_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	Status          string          `json:"status"`
	Date            string          `json:"date"`
	CurrencyCode    string          `json:"currency_code"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	TaxTotal        decimal.Decimal `json:"tax_total"`
	ShippingCharge  decimal.Decimal `json:"shipping_charge"`
	Discount        decimal.Decimal `json:"discount_total"`
	Adjustment      decimal.Decimal `json:"adjustment"`
	Total           decimal.Decimal `json:"total"`
	Balance         decimal.Decimal `json:"balance"`
	LineItems       []LineItem      `json:"line_items,omitempty"`
}

// Paid сумма, уже погашенная на удаленной стороне
func (i *Invoice) Paid() decimal.Decimal {
	return i.Total.Sub(i.Balance)
}

// InvoiceRequest тело создания счета
type InvoiceRequest struct {
	CustomerID      string          `json:"customer_id"`
	Date            string          `json:"date"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	ReferenceNumber string          `json:"reference_number"`
	CurrencyCode    string          `json:"currency_code,omitempty"`
	LineItems       []LineItem      `json:"line_items"`
	ShippingCharge  decimal.Decimal `json:"shipping_charge"`
	Discount        decimal.Decimal `json:"discount"`
	// DiscountType entity_level, до налогов
	DiscountType        string        `json:"discount_type,omitempty"`
	IsDiscountBeforeTax bool          `json:"is_discount_before_tax,omitempty"`
	IsInclusiveTax      bool          `json:"is_inclusive_tax"`
	Notes               string        `json:"notes,omitempty"`
	CustomFields        []CustomField `json:"custom_fields,omitempty"`
	// ForceNumber отключает автонумерацию, InvoiceNumber пишется как есть
	ForceNumber bool `json:"-"`
}

// InvoiceQuery фильтр списка счетов
type InvoiceQuery struct {
	ReferenceNumber string
	InvoiceNumber   string
	CustomerID      string
	DateStart       string
	DateEnd         string
	Page            int
	PerPage         int
}

type InvoicePage struct {
	Invoices    []Invoice   `json:"invoices"`
	PageContext PageContext `json:"page_context"`
}

type PaymentInvoice struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
}

type Payment struct {
	PaymentID       string           `json:"payment_id"`
	PaymentNumber   string           `json:"payment_number"`
	CustomerID      string           `json:"customer_id"`
	Date            string           `json:"date"`
	Amount          decimal.Decimal  `json:"amount"`
	PaymentMode     string           `json:"payment_mode"`
	ReferenceNumber string           `json:"reference_number"`
	Invoices        []PaymentInvoice `json:"invoices,omitempty"`
}

// PaymentRequest тело создания оплаты
type PaymentRequest struct {
	CustomerID      string           `json:"customer_id"`
	PaymentMode     string           `json:"payment_mode"`
	Amount          decimal.Decimal  `json:"amount"`
	Date            string           `json:"date"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Description     string           `json:"description,omitempty"`
	AccountID       string           `json:"account_id,omitempty"`
	BankCharges     decimal.Decimal  `json:"bank_charges"`
	Invoices        []PaymentInvoice `json:"invoices"`
}

type PaymentPage struct {
	Payments    []Payment   `json:"customerpayments"`
	PageContext PageContext `json:"page_context"`
}

type CreditNote struct {
	CreditNoteID     string          `json:"creditnote_id"`
	CreditNoteNumber string          `json:"creditnote_number"`
	CustomerID       string          `json:"customer_id"`
	Status           string          `json:"status"`
	Total            decimal.Decimal `json:"total"`
	Balance          decimal.Decimal `json:"balance"`
}

// CreditNoteRequest тело создания кредит-ноты
type CreditNoteRequest struct {
	CustomerID      string     `json:"customer_id"`
	Date            string     `json:"date"`
	ReferenceNumber string     `json:"reference_number,omitempty"`
	InvoiceID       string     `json:"invoice_id,omitempty"`
	LineItems       []LineItem `json:"line_items"`
	Notes           string     `json:"notes,omitempty"`
}

// CashRefundRequest возврат денег по кредит-ноте
type CashRefundRequest struct {
	Date            string          `json:"date"`
	RefundMode      string          `json:"refund_mode,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	FromAccountID   string          `json:"from_account_id"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Description     string          `json:"description,omitempty"`
}

type CashRefund struct {
	RefundID string          `json:"creditnote_refund_id"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
}

type Organization struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	CurrencyCode   string `json:"currency_code"`
}
