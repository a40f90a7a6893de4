package commerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id": 1}`)
	sig := Sign(body, "secret")

	tests := []struct {
		name      string
		secret    string
		signature string
		wantErr   bool
	}{
		{name: "valid", secret: "secret", signature: sig},
		{name: "wrong secret", secret: "other", signature: sig, wantErr: true},
		{name: "empty signature", secret: "secret", signature: "", wantErr: true},
		{name: "no secret configured", secret: "", signature: sig, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(body, tt.secret, tt.signature)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeOrder(t *testing.T) {
	o, err := DecodeOrder([]byte(orderJSON))
	require.NoError(t, err)
	assert.Equal(t, int64(501), o.ID)

	// пинг при создании вебхука
	_, err = DecodeOrder([]byte(`{"webhook_id": 3}`))
	assert.ErrorIs(t, err, ErrUnsupportedPayload)

	_, err = DecodeOrder([]byte(`nope`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
