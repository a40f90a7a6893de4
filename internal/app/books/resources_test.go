package books

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FindContactByEmail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/v3/contacts", r.URL.Path)
		assert.Equal(t, "ada@example.com", r.URL.Query().Get("email"))
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 0,
			"contacts": []map[string]any{
				{"contact_id": "C0", "contact_name": "Other", "email": "ada@example.com.au"},
				{"contact_id": "C1", "contact_name": "Ada", "email": "Ada@Example.com", "currency_code": "EUR"},
			},
		})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	contact, err := c.FindContactByEmail(context.Background(), " ADA@example.com ")
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "C1", contact.ContactID)
	assert.Equal(t, "EUR", contact.CurrencyCode)

	none, err := c.FindContactByEmail(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClient_CurrencyIDIsCached(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 0,
			"currencies": []map[string]any{
				{"currency_id": "1", "currency_code": "USD", "is_base_currency": true},
				{"currency_id": "2", "currency_code": "EUR"},
			},
		})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	id, err := c.CurrencyID(context.Background(), "eur")
	require.NoError(t, err)
	assert.Equal(t, "2", id)

	id, err = c.CurrencyID(context.Background(), "GBP")
	require.NoError(t, err)
	assert.Equal(t, "", id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_CreateInvoice(t *testing.T) {
	tests := []struct {
		name       string
		req        InvoiceRequest
		wantIgnore string
	}{
		{
			name:       "auto numbering",
			req:        InvoiceRequest{CustomerID: "C1", ReferenceNumber: "1001"},
			wantIgnore: "",
		},
		{
			name:       "forced number",
			req:        InvoiceRequest{CustomerID: "C1", ReferenceNumber: "1001", InvoiceNumber: "1001", ForceNumber: true},
			wantIgnore: "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantIgnore, r.URL.Query().Get("ignore_auto_number_generation"))

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "1001", body["reference_number"])
				_, hasForce := body["ForceNumber"]
				assert.False(t, hasForce)

				writeJSON(w, http.StatusCreated, map[string]any{
					"code":    0,
					"invoice": map[string]any{"invoice_id": "INV-1", "invoice_number": "INV-000001", "status": "draft"},
				})
			})

			c := newTestClient(t, handler, validTokens(), &fakeGate{})
			inv, err := c.CreateInvoice(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, "INV-1", inv.InvoiceID)
			assert.Equal(t, "INV-000001", inv.InvoiceNumber)
		})
	}
}

func TestClient_FindInvoiceByReference(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1001", r.URL.Query().Get("reference_number"))
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 0,
			"invoices": []map[string]any{
				{"invoice_id": "INV-X", "reference_number": "10010"},
				{"invoice_id": "INV-1", "reference_number": "1001", "customer_id": "C1"},
			},
			"page_context": map[string]any{"page": 1, "has_more_page": false},
		})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	inv, err := c.FindInvoiceByReference(context.Background(), "1001")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "INV-1", inv.InvoiceID)
}

func TestClient_ListInvoicesPagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-01-01", q.Get("date_start"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "200", q.Get("per_page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"code":         0,
			"invoices":     []map[string]any{{"invoice_id": "INV-3"}},
			"page_context": map[string]any{"page": 2, "per_page": 200, "has_more_page": true},
		})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	page, err := c.ListInvoices(context.Background(), InvoiceQuery{DateStart: "2024-01-01", Page: 2})
	require.NoError(t, err)
	assert.True(t, page.PageContext.HasMorePage)
	assert.Len(t, page.Invoices, 1)
}

func TestClient_ApplyCreditNoteFallback(t *testing.T) {
	var first, second int32
	mux := http.NewServeMux()
	mux.HandleFunc("/books/v3/creditnotes/CN-1/invoices", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&first, 1)
		writeJSON(w, http.StatusForbidden, map[string]any{"code": 4, "message": "permission denied"})
	})
	mux.HandleFunc("/books/v3/invoices/INV-1/credits", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&second, 1)
		var body map[string][]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body["apply_creditnotes"], 1)
		assert.Equal(t, "CN-1", body["apply_creditnotes"][0]["creditnote_id"])
		assert.Equal(t, 12.5, body["apply_creditnotes"][0]["amount_applied"])
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "message": "Credits have been applied"})
	})

	c := newTestClient(t, mux, validTokens(), &fakeGate{})
	err := c.ApplyCreditNote(context.Background(), "CN-1", "INV-1", decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestClient_CreatePayment(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 40.0, body["amount"])
		assert.Equal(t, "ACC-1", body["account_id"])
		writeJSON(w, http.StatusCreated, map[string]any{
			"code":    0,
			"payment": map[string]any{"payment_id": "P-1", "payment_number": "2", "amount": 40},
		})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	p, err := c.CreatePayment(context.Background(), PaymentRequest{
		CustomerID: "C1",
		Amount:     decimal.NewFromInt(40),
		AccountID:  "ACC-1",
		Invoices:   []PaymentInvoice{{InvoiceID: "INV-1", AmountApplied: decimal.NewFromInt(40)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "P-1", p.PaymentID)
	assert.Equal(t, "2", p.PaymentNumber)
}
