package commerce

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured      = errors.New("woocommerce store url or api keys are not configured")
	ErrMalformedResponse  = errors.New("malformed woocommerce response")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrUnsupportedPayload = errors.New("webhook payload is not an order")
)

// APIError ошибка REST API WooCommerce
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("woocommerce api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}
