package books

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/credential"
	"booksync/internal/utils/logger"
)

type fakeTokens struct {
	mu      sync.Mutex
	creds   *credential.Credentials
	token   string
	expired bool
	saves   int
}

func (f *fakeTokens) GetCredentials(context.Context) (*credential.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds, nil
}

func (f *fakeTokens) GetAccessToken(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) IsTokenExpired(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

func (f *fakeTokens) SaveAccessToken(_ context.Context, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.expired = false
	f.saves++
	return nil
}

func (f *fakeTokens) ClearAccessToken(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	return nil
}

type fakeGate struct {
	blocked  bool
	recorded int32
}

func (g *fakeGate) CanMakeRequest(context.Context) bool { return !g.blocked }

func (g *fakeGate) RecordRequest(context.Context) error {
	atomic.AddInt32(&g.recorded, 1)
	return nil
}

func (g *fakeGate) WaitForAvailability(context.Context, time.Duration) bool { return !g.blocked }

func validTokens() *fakeTokens {
	return &fakeTokens{
		creds: &credential.Credentials{ClientID: "cid", ClientSecret: "secret", RefreshToken: "refresh"},
		token: "valid-token",
	}
}

func newTestClient(t *testing.T, handler http.Handler, tokens *fakeTokens, gate *fakeGate) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(tokens, gate, logger.Discard(), Options{
		Region:         "eu",
		OrganizationID: "org-1",
		APIURL:         srv.URL + "/books/v3",
		AccountsURL:    srv.URL,
		HTTPClient:     srv.Client(),
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_UnknownRegion(t *testing.T) {
	_, err := New(validTokens(), &fakeGate{}, logger.Discard(), Options{Region: "mars"})
	assert.Error(t, err)
}

func TestLookupRegion(t *testing.T) {
	tests := []struct {
		code    string
		apiHost string
	}{
		{"us", "https://www.zohoapis.com/books/v3"},
		{"EU", "https://www.zohoapis.eu/books/v3"},
		{"in", "https://www.zohoapis.in/books/v3"},
		{"au", "https://www.zohoapis.com.au/books/v3"},
		{"jp", "https://www.zohoapis.jp/books/v3"},
		{"cn", "https://www.zohoapis.com.cn/books/v3"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r, err := LookupRegion(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.apiHost, r.APIURL)
			assert.Contains(t, r.TokenURL(), "/oauth/v2/token")
		})
	}
}

func TestClient_RefreshesExpiredToken(t *testing.T) {
	tokens := validTokens()
	tokens.expired = true
	gate := &fakeGate{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "fresh-token", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/books/v3/organizations/org-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zoho-oauthtoken fresh-token", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.URL.Query().Get("organization_id"))
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "message": "success", "organization": map[string]any{"organization_id": "org-1", "name": "Shop"}})
	})

	c := newTestClient(t, mux, tokens, gate)
	org, err := c.GetOrganization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Shop", org.Name)
	assert.Equal(t, 1, tokens.saves)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gate.recorded))
}

func TestClient_NotConfigured(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	c := newTestClient(t, handler, &fakeTokens{}, &fakeGate{})
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_TokenExchangeFailure(t *testing.T) {
	tokens := validTokens()
	tokens.expired = true
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_client"})
	})

	c := newTestClient(t, mux, tokens, &fakeGate{})
	_, err := c.RefreshAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestClient_RateLimitExceeded(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{blocked: true})
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		check    func(t *testing.T, err error)
		notFound bool
	}{
		{
			name:   "non-zero code",
			status: http.StatusBadRequest,
			body:   `{"code":1001,"message":"Invalid value passed for customer_id"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, 1001, apiErr.Code)
				assert.Equal(t, http.StatusBadRequest, apiErr.Status)
				assert.Equal(t, "Invalid value passed for customer_id", apiErr.Message)
			},
		},
		{
			name:   "code in successful http status",
			status: http.StatusOK,
			body:   `{"code":57,"message":"You are not authorized"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, 57, apiErr.Code)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `<html>oops</html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"code":1002,"message":"Invoice does not exist."}`,
			notFound: true,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(t, handler, validTokens(), &fakeGate{})
			_, err := c.GetInvoice(context.Background(), "INV-1")
			require.Error(t, err)
			tt.check(t, err)
			if !tt.notFound {
				assert.False(t, IsNotFound(err))
			}
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits int32
	gate := &fakeGate{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "invoice": map[string]any{"invoice_id": "INV-1", "total": 10.5}})
	})

	c := newTestClient(t, handler, validTokens(), gate)
	inv, err := c.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", inv.InvoiceID)
	assert.Equal(t, "10.5", inv.Total.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	// каждая попытка проходит через ограничитель
	assert.Equal(t, int32(2), atomic.LoadInt32(&gate.recorded))
}

func TestClient_WritesRetryOnlyOnTooManyRequests(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantHits int32
		wantErr  bool
	}{
		{name: "bad gateway is not resent", status: http.StatusBadGateway, wantHits: 1, wantErr: true},
		{name: "service unavailable is not resent", status: http.StatusServiceUnavailable, wantHits: 1, wantErr: true},
		{name: "too many requests is resent", status: http.StatusTooManyRequests, wantHits: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				if atomic.AddInt32(&hits, 1) == 1 {
					w.Header().Set("Retry-After", "0")
					writeJSON(w, tt.status, map[string]any{"code": 1, "message": "try later"})
					return
				}
				writeJSON(w, http.StatusCreated, map[string]any{"code": 0, "invoice": map[string]any{"invoice_id": "INV-1"}})
			})

			c := newTestClient(t, handler, validTokens(), &fakeGate{})
			inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{CustomerID: "C1", ReferenceNumber: "1001"})
			if tt.wantErr {
				require.Error(t, err)
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.Status)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "INV-1", inv.InvoiceID)
			}
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestClient_WriteNotResentAfterTransportError(t *testing.T) {
	var hits int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	_, err := c.CreatePayment(context.Background(), PaymentRequest{CustomerID: "C1"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_FailureLogCarriesOrderID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 1001, "message": "Invalid line item"})
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	c, err := New(validTokens(), &fakeGate{}, log, Options{
		Region:         "eu",
		OrganizationID: "org-1",
		APIURL:         srv.URL + "/books/v3",
		AccountsURL:    srv.URL,
		HTTPClient:     srv.Client(),
	})
	require.NoError(t, err)

	_, err = c.CreateInvoice(WithOrderID(context.Background(), 501), InvoiceRequest{CustomerID: "C1", ReferenceNumber: "1001"})
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "zoho books call failed", entry["msg"])
	assert.Equal(t, float64(501), entry["order_id"])
	assert.Equal(t, "1001", entry["entity_id"])
}

func TestClient_RefreshOnUnauthorized(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "second-token", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/books/v3/invoices/INV-1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Zoho-oauthtoken second-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 57, "message": "You are not authorized to perform this operation"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "invoice": map[string]any{"invoice_id": "INV-1"}})
	})

	tokens := validTokens()
	c := newTestClient(t, mux, tokens, &fakeGate{})
	inv, err := c.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-1", inv.InvoiceID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "second-token", tokens.GetAccessToken(context.Background()))
}

func TestClient_RawRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books/v3/invoices/INV-1/email", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["subject"])
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "message": "Your invoice has been sent."})
	})

	c := newTestClient(t, handler, validTokens(), &fakeGate{})
	out, err := c.RawRequest(context.Background(), http.MethodPost, "/invoices/INV-1/email", map[string]any{"subject": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Your invoice has been sent.", out["message"])
}

func TestClient_RetryDelay(t *testing.T) {
	c := &Client{baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, ""))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, ""))
	assert.Equal(t, time.Second, c.retryDelay(10, ""))
	assert.Equal(t, time.Second, c.retryDelay(1, "30"))
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, "garbage"))
}

func TestClient_ExchangeGrantCode(t *testing.T) {
	t.Run("offline access granted", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "grant-123", r.PostForm.Get("code"))
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "at", "refresh_token": "rt", "token_type": "Bearer", "expires_in": 3600,
			})
		})
		c := newTestClient(t, mux, &fakeTokens{}, &fakeGate{})

		res, err := c.ExchangeGrantCode(context.Background(), "cid", "secret", "grant-123", "")
		require.NoError(t, err)
		assert.Equal(t, "at", res.AccessToken)
		assert.Equal(t, "rt", res.RefreshToken)
		assert.InDelta(t, 3600, res.ExpiresIn.Seconds(), 5)
	})

	t.Run("no refresh token", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
		})
		c := newTestClient(t, mux, &fakeTokens{}, &fakeGate{})

		_, err := c.ExchangeGrantCode(context.Background(), "cid", "secret", "grant-123", "")
		assert.ErrorIs(t, err, ErrNoOfflineAccess)
	})
}

func TestClient_ValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		wantErr bool
	}{
		{name: "accepted", status: http.StatusOK, body: map[string]any{"access_token": "probe", "token_type": "Bearer", "expires_in": 3600}},
		{name: "rejected", status: http.StatusBadRequest, body: map[string]any{"error": "invalid_code"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "new-refresh", r.PostForm.Get("refresh_token"))
				writeJSON(w, tt.status, tt.body)
			})
			tokens := &fakeTokens{}
			c := newTestClient(t, mux, tokens, &fakeGate{})

			err := c.ValidateCredentials(context.Background(), credential.Credentials{
				ClientID: "cid", ClientSecret: "secret", RefreshToken: "new-refresh",
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTokenExchange)
			} else {
				assert.NoError(t, err)
			}
			assert.Zero(t, tokens.saves)
		})
	}
}
