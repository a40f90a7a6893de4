package commerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"booksync/internal/domain/order"
)

// SignatureHeader заголовок подписи вебхука
const SignatureHeader = "X-WC-Webhook-Signature"

// TopicHeader заголовок темы вебхука, например order.updated
const TopicHeader = "X-WC-Webhook-Topic"

// VerifySignature base64(HMAC-SHA256(body, secret)) в постоянном времени
func VerifySignature(body []byte, secret, signature string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(Sign(body, secret)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign подпись тела, используется CLI и тестами
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// DecodeOrder тело вебхука order.* в заказ
func DecodeOrder(body []byte) (*order.Order, error) {
	var w wooOrder
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if w.ID == 0 {
		return nil, ErrUnsupportedPayload
	}
	return w.toOrder(), nil
}
