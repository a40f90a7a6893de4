package books

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const defaultPerPage = 200

// FindInvoiceByReference первый счет с указанным reference number
func (c *Client) FindInvoiceByReference(ctx context.Context, reference string) (*Invoice, error) {
	if reference == "" {
		return nil, nil
	}
	page, err := c.ListInvoices(ctx, InvoiceQuery{ReferenceNumber: reference})
	if err != nil {
		return nil, err
	}
	for i := range page.Invoices {
		if page.Invoices[i].ReferenceNumber == reference {
			return &page.Invoices[i], nil
		}
	}
	return nil, nil
}

// FindInvoiceByNumber счет с указанным номером
func (c *Client) FindInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	if number == "" {
		return nil, nil
	}
	page, err := c.ListInvoices(ctx, InvoiceQuery{InvoiceNumber: number})
	if err != nil {
		return nil, err
	}
	for i := range page.Invoices {
		if page.Invoices[i].InvoiceNumber == number {
			return &page.Invoices[i], nil
		}
	}
	return nil, nil
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := c.call(ctx, Op{Endpoint: "invoices.get", EntityID: invoiceID}, http.MethodGet, "/invoices/"+url.PathEscape(invoiceID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Invoice, nil
}

// ListInvoices одна страница счетов
func (c *Client) ListInvoices(ctx context.Context, query InvoiceQuery) (*InvoicePage, error) {
	q := url.Values{}
	if query.ReferenceNumber != "" {
		q.Set("reference_number", query.ReferenceNumber)
	}
	if query.InvoiceNumber != "" {
		q.Set("invoice_number", query.InvoiceNumber)
	}
	if query.CustomerID != "" {
		q.Set("customer_id", query.CustomerID)
	}
	if query.DateStart != "" {
		q.Set("date_start", query.DateStart)
	}
	if query.DateEnd != "" {
		q.Set("date_end", query.DateEnd)
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var resp InvoicePage
	if err := c.call(ctx, Op{Endpoint: "invoices.list"}, http.MethodGet, "/invoices", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateInvoice создает счет. При ForceNumber автонумерация отключается.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var q url.Values
	if req.ForceNumber && req.InvoiceNumber != "" {
		q = url.Values{"ignore_auto_number_generation": {"true"}}
	}
	var resp struct {
		Invoice Invoice `json:"invoice"`
	}
	if err := c.call(ctx, Op{Endpoint: "invoices.create", EntityID: req.ReferenceNumber}, http.MethodPost, "/invoices", q, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Invoice, nil
}

func (c *Client) MarkInvoiceSent(ctx context.Context, invoiceID string) error {
	return c.call(ctx, Op{Endpoint: "invoices.mark_sent", EntityID: invoiceID}, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/status/sent", nil, nil, nil)
}

func (c *Client) MarkInvoiceVoid(ctx context.Context, invoiceID string) error {
	return c.call(ctx, Op{Endpoint: "invoices.mark_void", EntityID: invoiceID}, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/status/void", nil, nil, nil)
}
