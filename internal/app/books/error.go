package books

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured нет учетных данных или организации, нужен пользователь
	ErrNotConfigured = errors.New("zoho books is not configured")
	// ErrRateLimitExceeded локальный лимит исчерпан и ожидание не помогло
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrMalformedResponse ответ не является ожидаемым JSON
	ErrMalformedResponse = errors.New("malformed response")
	// ErrTokenExchange обмен refresh token на access token не удался
	ErrTokenExchange = errors.New("token exchange failed")
	// ErrNoOfflineAccess grant code выдан без refresh token
	ErrNoOfflineAccess = errors.New("grant did not include a refresh token; request offline access")
)

// APIError ненулевой код ответа Zoho Books. Message передается как есть.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zoho books api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

// codeNotFound код Zoho для отсутствующей записи
const codeNotFound = 1002

// IsNotFound true для отсутствующей записи
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Code == codeNotFound
}
