package credential

import "errors"

var (
	ErrIncomplete = errors.New("credentials are incomplete")
	ErrEncrypt    = errors.New("failed to encrypt credentials")
)
