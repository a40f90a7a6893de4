package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/domain/order"
)

const (
	apiPrefix      = "/wp-json/wc/v3"
	defaultTimeout = 30 * time.Second
	defaultPerPage = 50
	maxPages       = 100
)

// Options параметры клиента магазина
type Options struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	HTTPClient     *http.Client
	PerPage        int
}

// Client адаптер WooCommerce REST v3, реализует order.Source
type Client struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
	perPage    int
	log        *slog.Logger
}

var _ order.Source = (*Client)(nil)

func New(log *slog.Logger, opts Options) (*Client, error) {
	if opts.BaseURL == "" || opts.ConsumerKey == "" || opts.ConsumerSecret == "" {
		return nil, ErrNotConfigured
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = defaultPerPage
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/") + apiPrefix,
		key:        opts.ConsumerKey,
		secret:     opts.ConsumerSecret,
		httpClient: httpClient,
		perPage:    perPage,
		log:        log.With("component", "woocommerce_client"),
	}, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	var w wooOrder
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &w); err != nil {
		return nil, err
	}
	o := w.toOrder()

	if len(w.Refunds) > 0 {
		refunds, err := c.ListRefunds(ctx, id)
		if err != nil {
			return nil, err
		}
		o.Refunds = refunds
	}
	return o, nil
}

// ListOrders при q.Page == 0 обходит все страницы по X-WP-TotalPages
func (c *Client) ListOrders(ctx context.Context, q order.ListQuery) ([]*order.Order, error) {
	perPage := q.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	query := url.Values{
		"per_page": {strconv.Itoa(perPage)},
		"orderby":  {"date"},
		"order":    {"asc"},
	}
	if !q.After.IsZero() {
		query.Set("after", q.After.UTC().Format(time.RFC3339))
		query.Set("dates_are_gmt", "true")
	}
	if !q.Before.IsZero() {
		query.Set("before", q.Before.UTC().Format(time.RFC3339))
		query.Set("dates_are_gmt", "true")
	}
	if len(q.Statuses) > 0 {
		query.Set("status", strings.Join(q.Statuses, ","))
	}

	first, last := q.Page, q.Page
	if q.Page <= 0 {
		first, last = 1, maxPages
	}

	var out []*order.Order
	for page := first; page <= last; page++ {
		query.Set("page", strconv.Itoa(page))
		var batch []wooOrder
		header, err := c.do(ctx, http.MethodGet, "/orders", query, nil, &batch)
		if err != nil {
			return nil, err
		}
		for i := range batch {
			out = append(out, batch[i].toOrder())
		}
		total, _ := strconv.Atoi(header.Get("X-WP-TotalPages"))
		if len(batch) < perPage || page >= total {
			break
		}
	}
	return out, nil
}

func (c *Client) ListRefunds(ctx context.Context, orderID int64) ([]order.Refund, error) {
	var batch []wooRefund
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d/refunds", orderID), nil, nil, &batch); err != nil {
		return nil, err
	}
	refunds := make([]order.Refund, 0, len(batch))
	for i := range batch {
		r, err := batch[i].toRefund()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		refunds = append(refunds, *r)
	}
	return refunds, nil
}

func (c *Client) GetRefund(ctx context.Context, orderID, refundID int64) (*order.Refund, error) {
	var w wooRefund
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d/refunds/%d", orderID, refundID), nil, nil, &w); err != nil {
		return nil, err
	}
	r, err := w.toRefund()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return r, nil
}

// AddNote приватная заметка к заказу
func (c *Client) AddNote(ctx context.Context, orderID int64, note string) error {
	body := map[string]any{"note": note, "customer_note": false}
	var resp wooNote
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/notes", orderID), nil, body, &resp)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (http.Header, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("woocommerce request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, order.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.log.Error("woocommerce api error", "method", method, "path", path, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return resp.Header, nil
}
