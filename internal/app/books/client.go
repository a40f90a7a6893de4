package books

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
	"golang.org/x/sync/singleflight"

	"booksync/internal/domain/credential"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRateLimitWait = 30 * time.Second
	defaultMaxRetries    = 3
	defaultBaseDelay     = 500 * time.Millisecond
	defaultMaxDelay      = 10 * time.Second

	// tokenLifetime expires_in от Zoho ненадежен, берем консервативную константу
	tokenLifetime = 3600 * time.Second
)

// TokenStore хранилище учетных данных и токена доступа
type TokenStore interface {
	GetCredentials(ctx context.Context) (*credential.Credentials, error)
	GetAccessToken(ctx context.Context) string
	IsTokenExpired(ctx context.Context) bool
	SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error
	ClearAccessToken(ctx context.Context) error
}

// RateGate локальный ограничитель частоты запросов
type RateGate interface {
	CanMakeRequest(ctx context.Context) bool
	RecordRequest(ctx context.Context) error
	WaitForAvailability(ctx context.Context, maxWait time.Duration) bool
}

// Op контекст вызова для логов
type Op struct {
	Endpoint string
	EntityID string
	OrderID  int64
}

type orderIDKey struct{}

// WithOrderID помечает вызовы в ctx заказом, id попадает в лог ошибок
func WithOrderID(ctx context.Context, orderID int64) context.Context {
	return context.WithValue(ctx, orderIDKey{}, orderID)
}

func orderIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(orderIDKey{}).(int64)
	return id
}

// Options параметры клиента
type Options struct {
	Region         string
	OrganizationID string
	// APIURL и AccountsURL перекрывают адреса региона
	APIURL        string
	AccountsURL   string
	HTTPClient    *http.Client
	RateLimitWait time.Duration
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	UserAgent     string
}

// Client единственная точка вызовов Zoho Books API
type Client struct {
	tokens      TokenStore
	gate        RateGate
	log         *slog.Logger
	httpClient  *http.Client
	region      Region
	apiURL      string
	accountsURL string
	orgID       string
	rateWait    time.Duration
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	userAgent   string

	refreshGroup singleflight.Group
	currencies   *currencyCache
}

func New(tokens TokenStore, gate RateGate, log *slog.Logger, opts Options) (*Client, error) {
	region, err := LookupRegion(opts.Region)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		tokens:      tokens,
		gate:        gate,
		log:         log.With("component", "books_client"),
		httpClient:  httpClient,
		region:      region,
		apiURL:      strings.TrimRight(region.APIURL, "/"),
		accountsURL: strings.TrimRight(region.AccountsURL, "/"),
		orgID:       strings.TrimSpace(opts.OrganizationID),
		rateWait:    opts.RateLimitWait,
		maxRetries:  opts.MaxRetries,
		baseDelay:   opts.BaseDelay,
		maxDelay:    opts.MaxDelay,
		userAgent:   opts.UserAgent,
		currencies:  newCurrencyCache(),
	}
	if opts.APIURL != "" {
		c.apiURL = strings.TrimRight(opts.APIURL, "/")
	}
	if opts.AccountsURL != "" {
		c.accountsURL = strings.TrimRight(opts.AccountsURL, "/")
	}
	if c.rateWait <= 0 {
		c.rateWait = defaultRateLimitWait
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	if c.userAgent == "" {
		c.userAgent = "booksync/1.0"
	}
	return c, nil
}

// Region текущий регион
func (c *Client) Region() Region {
	return c.region
}

// Do проходит через ограничитель, обеспечивает действующий токен и выполняет call.
// Ошибка call логируется с контекстом и возвращается без изменений.
func (c *Client) Do(ctx context.Context, op Op, call func(ctx context.Context) error) error {
	if c.orgID == "" {
		return fmt.Errorf("%w: organization id is empty", ErrNotConfigured)
	}
	if op.OrderID == 0 {
		op.OrderID = orderIDFrom(ctx)
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	if _, err := c.ensureToken(ctx); err != nil {
		c.logFailure(op, err)
		return err
	}
	if err := call(ctx); err != nil {
		c.logFailure(op, err)
		return err
	}
	return nil
}

// RawRequest запрос к произвольному эндпоинту, ответ как есть
func (c *Client) RawRequest(ctx context.Context, method, path string, body any) (map[string]any, error) {
	var out map[string]any
	err := c.Do(ctx, Op{Endpoint: method + " " + path}, func(ctx context.Context) error {
		return c.send(ctx, method, path, nil, body, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// call типовой вызов ресурса
func (c *Client) call(ctx context.Context, op Op, method, path string, query url.Values, body, out any) error {
	if op.Endpoint == "" {
		op.Endpoint = method + " " + path
	}
	return c.Do(ctx, op, func(ctx context.Context) error {
		return c.send(ctx, method, path, query, body, out)
	})
}

func (c *Client) acquire(ctx context.Context) error {
	if c.gate == nil {
		return nil
	}
	if !c.gate.CanMakeRequest(ctx) {
		c.log.Info("rate limit reached, waiting for the next window", "max_wait", c.rateWait.String())
		if !c.gate.WaitForAvailability(ctx, c.rateWait) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrRateLimitExceeded
		}
	}
	if err := c.gate.RecordRequest(ctx); err != nil {
		c.log.Warn("failed to record request", "error", err)
	}
	return nil
}

// idempotent запросы только на чтение
func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// retryable 429 повторяется для любого метода, 5xx только для чтения.
// Запись после 5xx могла сохраниться, ее повторяет оркестратор после проверки.
func retryable(method string, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500 && idempotent(method)
}

// send выполняет HTTP запрос с повторами на 429 (любой метод) и 5xx/обрыв (только чтение)
// и одним обновлением токена на 401
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("organization_id", c.orgID)
	endpoint := c.apiURL + path + "?" + q.Encode()

	refreshed := false
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.acquire(ctx); err != nil {
				return err
			}
		}

		token := c.tokens.GetAccessToken(ctx)
		if token == "" {
			return fmt.Errorf("%w: no access token", ErrNotConfigured)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.log.Debug("sending request", "method", method, "path", path, "attempt", attempt+1)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil && idempotent(method) && attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request %s %s failed: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read response: %w", readErr)
		}

		c.log.Debug("received response", "status", resp.StatusCode, "path", path)

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			refreshed = true
			if _, err := c.RefreshAccessToken(ctx); err != nil {
				return err
			}
			continue
		}

		if retryable(method, resp.StatusCode) && attempt < c.maxRetries {
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		return decodeEnvelope(resp.StatusCode, respBody, out)
	}
}

type envelope struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// decodeEnvelope разбирает ответ вида {code, message, ...}
func decodeEnvelope(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= 400 {
			return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Code != nil && *env.Code != 0 {
		return &APIError{Status: status, Code: *env.Code, Message: env.Message}
	}
	if status >= 400 {
		return &APIError{Status: status, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) logFailure(op Op, err error) {
	attrs := []any{"endpoint", op.Endpoint, "error", err}
	if op.EntityID != "" {
		attrs = append(attrs, "entity_id", op.EntityID)
	}
	if op.OrderID != 0 {
		attrs = append(attrs, "order_id", op.OrderID)
	}
	c.log.Error("zoho books call failed", attrs...)
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
