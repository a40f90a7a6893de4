package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Константы для PBKDF2
	pbkdf2Iterations = 100000
	keyLength        = 32 // AES-256

	aeadPrefix     = "v1:"
	degradedPrefix = "b64:"

	// fallbackSecret используется, только если не задан ни APP_SECRET, ни SITE_SECRET
	fallbackSecret = "booksync-static-fallback-secret"
)

// Mode описывает уровень защиты данных at rest
type Mode string

const (
	// ModeAEAD шифрование AES-256-GCM с аутентификацией
	ModeAEAD Mode = "aead"
	// ModeDegraded только base64 кодирование. Это НЕ шифрование.
	ModeDegraded Mode = "degraded"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownFormat      = errors.New("unknown ciphertext format")
)

// KeySource откуда получен ключ шифрования
type KeySource string

const (
	KeySourceApp      KeySource = "app_secret"
	KeySourceSite     KeySource = "site_secret"
	KeySourceFallback KeySource = "static_fallback"
)

// ServerEncryptor шифрует секреты интеграции перед сохранением в хранилище
type ServerEncryptor struct {
	key    []byte
	mode   Mode
	source KeySource
}

// NewServerEncryptor выводит ключ из секрета приложения, затем из секрета сайта,
// затем из статического значения
func NewServerEncryptor(appSecret, siteSecret string, mode Mode) *ServerEncryptor {
	secret, source := appSecret, KeySourceApp
	if strings.TrimSpace(secret) == "" {
		secret, source = siteSecret, KeySourceSite
	}
	if strings.TrimSpace(secret) == "" {
		secret, source = fallbackSecret, KeySourceFallback
	}
	if mode != ModeDegraded {
		mode = ModeAEAD
	}

	salt := sha256.Sum256([]byte("booksync:credentials:" + string(source)))
	key := pbkdf2.Key([]byte(secret), salt[:], pbkdf2Iterations, keyLength, sha256.New)

	return &ServerEncryptor{
		key:    key,
		mode:   mode,
		source: source,
	}
}

// Mode возвращает текущий режим защиты
func (e *ServerEncryptor) Mode() Mode {
	return e.mode
}

// KeySource возвращает источник ключа
func (e *ServerEncryptor) KeySource() KeySource {
	return e.source
}

// Encrypt шифрует строку и возвращает base64(nonce||ciphertext) с префиксом версии
func (e *ServerEncryptor) Encrypt(plaintext string) (string, error) {
	if e.mode == ModeDegraded {
		return degradedPrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return aeadPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает значение, созданное Encrypt. Значения в degraded формате
// читаются в любом режиме, чтобы переход на AEAD не терял данные.
func (e *ServerEncryptor) Decrypt(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, degradedPrefix):
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, degradedPrefix))
		if err != nil {
			return "", fmt.Errorf("failed to decode base64: %w", err)
		}
		return string(raw), nil
	case strings.HasPrefix(value, aeadPrefix):
	default:
		return "", ErrUnknownFormat
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, aeadPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func (e *ServerEncryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
