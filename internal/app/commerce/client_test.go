package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booksync/internal/domain/order"
	"booksync/internal/utils/logger"
)

const orderJSON = `{
	"id": 501,
	"number": "1001",
	"status": "processing",
	"currency": "usd",
	"date_created_gmt": "2024-03-09T10:00:00",
	"date_paid_gmt": null,
	"payment_method": "stripe",
	"payment_method_title": "Credit card",
	"transaction_id": "ch_123",
	"billing": {"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "address_1": "1 St", "city": "London", "country": "GB"},
	"shipping": {"first_name": "", "last_name": ""},
	"line_items": [{"id": 1, "name": "Widget", "sku": "W-1", "product_id": 9, "quantity": 2, "subtotal": "20.00", "total": "18.00", "total_tax": "0.00"}],
	"fee_lines": [{"id": 3, "name": "Gift wrap", "total": "2.50"}],
	"refunds": [],
	"shipping_total": "5.00",
	"discount_total": "2.00",
	"total_tax": "0.00",
	"total": "25.50",
	"meta_data": [
		{"id": 1, "key": "_stripe_fee", "value": "1.04"},
		{"id": 2, "key": "_stripe_net", "value": 24.46},
		{"id": 3, "key": "_complex", "value": {"a": 1}}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(logger.Discard(), Options{BaseURL: srv.URL + "/", ConsumerKey: "ck", ConsumerSecret: "cs", PerPage: 2})
	require.NoError(t, err)
	return c
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(logger.Discard(), Options{BaseURL: "https://shop.example"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_GetOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ck", user)
		assert.Equal(t, "cs", pass)
		assert.Equal(t, "/wp-json/wc/v3/orders/501", r.URL.Path)
		_, _ = io.WriteString(w, orderJSON)
	})

	o, err := c.GetOrder(context.Background(), 501)
	require.NoError(t, err)

	assert.Equal(t, "1001", o.Number)
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), o.CreatedAt)
	assert.Nil(t, o.PaidAt)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("25.50")))
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	require.Len(t, o.Fees, 1)
	assert.Equal(t, "Ada", o.Billing.FirstName)
	assert.Equal(t, "1.04", o.MetaValue("_stripe_fee"))
	assert.Equal(t, "24.46", o.MetaValue("_stripe_net"))
	assert.JSONEq(t, `{"a":1}`, o.MetaValue("_complex"))
}

func TestClient_GetOrder_WithRefunds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wc/v3/orders/7":
			_, _ = io.WriteString(w, `{"id": 7, "number": "7", "status": "completed", "currency": "EUR", "total": "30.00",
				"refunds": [{"id": 70, "reason": "broken", "total": "-10.00"}]}`)
		case "/wp-json/wc/v3/orders/7/refunds":
			_, _ = io.WriteString(w, `[{"id": 70, "date_created_gmt": "2024-03-11T09:00:00", "amount": "10.00", "reason": "broken",
				"line_items": [{"id": 5, "name": "Widget", "quantity": -1, "subtotal": "-10.00", "total": "-10.00", "total_tax": "0",
				"meta_data": [{"key": "_refunded_item_id", "value": "1"}]}]}]`)
		default:
			http.NotFound(w, r)
		}
	})

	o, err := c.GetOrder(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, o.Refunds, 1)

	r := o.Refunds[0]
	assert.Equal(t, int64(70), r.ID)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(10)))
	require.Len(t, r.Lines, 1)
	assert.True(t, r.Lines[0].Total.Equal(decimal.NewFromInt(10)))
	assert.True(t, r.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(1), r.Lines[0].LineItemID)
}

func TestClient_GetOrder_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code": "woocommerce_rest_shop_order_invalid_id", "message": "Invalid ID."}`)
	})

	_, err := c.GetOrder(context.Background(), 1)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code": "woocommerce_rest_cannot_view", "message": "Sorry, you cannot list resources."}`)
	})

	_, err := c.GetOrder(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "woocommerce_rest_cannot_view", apiErr.Code)
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": "not a number"`)
	})

	_, err := c.GetOrder(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_ListOrders_AllPages(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "2024-03-01T00:00:00Z", r.URL.Query().Get("after"))
		assert.Equal(t, "processing,completed", r.URL.Query().Get("status"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-WP-TotalPages", "2")
		var batch []map[string]any
		for i := 1; i <= 2; i++ {
			id := (page-1)*2 + i
			if id > 3 {
				break
			}
			batch = append(batch, map[string]any{"id": id, "number": fmt.Sprint(id), "total": "1.00"})
		}
		_ = json.NewEncoder(w).Encode(batch)
	})

	orders, err := c.ListOrders(context.Background(), order.ListQuery{
		After:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Statuses: []string{"processing", "completed"},
	})
	require.NoError(t, err)
	assert.Len(t, orders, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ListOrders_SinglePage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		w.Header().Set("X-WP-TotalPages", "9")
		_, _ = io.WriteString(w, `[{"id": 1, "total": "1"}]`)
	})

	orders, err := c.ListOrders(context.Background(), order.ListQuery{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestClient_AddNote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/orders/5/notes", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["note"])
		assert.Equal(t, false, body["customer_note"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 1, "note": "hello"}`)
	})

	require.NoError(t, c.AddNote(context.Background(), 5, "hello"))
}

func TestClient_GetRefund(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/orders/5/refunds/9", r.URL.Path)
		_, _ = io.WriteString(w, `{"id": 9, "amount": "oops"}`)
	})

	_, err := c.GetRefund(context.Background(), 5, 9)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
