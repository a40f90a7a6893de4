package books

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var resp struct {
		Payment Payment `json:"payment"`
	}
	entity := ""
	if len(req.Invoices) > 0 {
		entity = req.Invoices[0].InvoiceID
	}
	if err := c.call(ctx, Op{Endpoint: "customerpayments.create", EntityID: entity}, http.MethodPost, "/customerpayments", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Payment, nil
}

// ListPayments одна страница оплат. Фильтра по дате у API нет.
func (c *Client) ListPayments(ctx context.Context, page, perPage int) (*PaymentPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var resp PaymentPage
	if err := c.call(ctx, Op{Endpoint: "customerpayments.list"}, http.MethodGet, "/customerpayments", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
