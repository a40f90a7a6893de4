package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/infrastructure/crypto"
)

const (
	credentialsKey    = "zoho_credentials"
	accessTokenKey    = "zoho_access_token"
	accessTokenExpKey = "zoho_access_token_expires"

	// RefreshMargin токен считается истекшим за 5 минут до реального срока
	RefreshMargin = 300 * time.Second
)

// Encryptor шифрует значения перед записью в хранилище
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Mode() crypto.Mode
}

// ValidationHook вызывается перед сохранением учетных данных
type ValidationHook func(ctx context.Context, creds Credentials) error

type savingKey struct{}

// Store хранит учетные данные и токен доступа в зашифрованном виде
type Store struct {
	repo  Repository
	enc   Encryptor
	log   *slog.Logger
	now   func() time.Time
	mu    sync.RWMutex
	hooks []ValidationHook
}

// NewStore создает хранилище учетных данных
func NewStore(repo Repository, enc Encryptor, log *slog.Logger) *Store {
	s := &Store{
		repo: repo,
		enc:  enc,
		log:  log.With("component", "credential_store"),
		now:  time.Now,
	}
	if enc.Mode() == crypto.ModeDegraded {
		s.log.Warn("credentials are stored in degraded mode: base64 encoding only, NOT encrypted")
	}
	return s
}

// WithClock подменяет источник времени
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// AddValidationHook регистрирует хук валидации
func (s *Store) AddValidationHook(hook ValidationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Mode режим защиты данных
func (s *Store) Mode() crypto.Mode {
	return s.enc.Mode()
}

// GetCredentials возвращает nil, если данные отсутствуют или неполные
func (s *Store) GetCredentials(ctx context.Context) (*Credentials, error) {
	raw, ok, err := s.repo.Get(ctx, credentialsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	plaintext := s.decrypt(raw)
	if plaintext == "" {
		return nil, nil
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		s.log.Warn("stored credentials are not valid JSON", "error", err)
		return nil, nil
	}
	if !creds.Complete() {
		return nil, nil
	}
	return &creds, nil
}

// SaveCredentials шифрует и сохраняет учетные данные.
// Сохранение, вызванное из хука валидации, не запускает хуки повторно.
func (s *Store) SaveCredentials(ctx context.Context, clientID, clientSecret, refreshToken string, opts SaveOptions) error {
	creds := Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	}
	if !creds.Complete() {
		return ErrIncomplete
	}

	if _, nested := ctx.Value(savingKey{}).(bool); nested {
		opts.SkipValidation = true
	}

	if !opts.SkipValidation {
		hookCtx := context.WithValue(ctx, savingKey{}, true)
		s.mu.RLock()
		hooks := append([]ValidationHook(nil), s.hooks...)
		s.mu.RUnlock()
		for _, hook := range hooks {
			if err := hook(hookCtx, creds); err != nil {
				return fmt.Errorf("credentials rejected: %w", err)
			}
		}
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	encrypted, err := s.enc.Encrypt(string(payload))
	if err != nil {
		s.log.Error("failed to encrypt credentials", "error", err)
		return ErrEncrypt
	}

	if err := s.repo.Set(ctx, credentialsKey, encrypted); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	// Новые учетные данные делают старый токен бесполезным
	if err := s.ClearAccessToken(ctx); err != nil {
		s.log.Warn("failed to clear access token", "error", err)
	}

	s.log.Info("credentials saved", "client_id", clientID)
	return nil
}

// GetAccessToken возвращает "" при отсутствии или ошибке расшифровки
func (s *Store) GetAccessToken(ctx context.Context) string {
	raw, ok, err := s.repo.Get(ctx, accessTokenKey)
	if err != nil {
		s.log.Warn("failed to read access token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return s.decrypt(raw)
}

// GetAccessTokenExpiry время истечения токена, nil если не записано
func (s *Store) GetAccessTokenExpiry(ctx context.Context) *time.Time {
	raw, ok, err := s.repo.Get(ctx, accessTokenExpKey)
	if err != nil || !ok || raw == "" {
		return nil
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(unix, 0)
	return &t
}

// IsTokenExpired true, если до истечения меньше RefreshMargin или срок неизвестен
func (s *Store) IsTokenExpired(ctx context.Context) bool {
	expiresAt := s.GetAccessTokenExpiry(ctx)
	if expiresAt == nil {
		return true
	}
	return !s.now().Before(expiresAt.Add(-RefreshMargin))
}

// SaveAccessToken сохраняет токен со сроком now+expiresIn
func (s *Store) SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error {
	encrypted, err := s.enc.Encrypt(token)
	if err != nil {
		s.log.Error("failed to encrypt access token", "error", err)
		return ErrEncrypt
	}
	if err := s.repo.Set(ctx, accessTokenKey, encrypted); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	expiresAt := s.now().Add(expiresIn).Unix()
	if err := s.repo.Set(ctx, accessTokenExpKey, strconv.FormatInt(expiresAt, 10)); err != nil {
		return fmt.Errorf("failed to save access token expiry: %w", err)
	}
	return nil
}

// ClearAccessToken удаляет кэшированный токен
func (s *Store) ClearAccessToken(ctx context.Context) error {
	if err := s.repo.Delete(ctx, accessTokenKey); err != nil {
		return err
	}
	return s.repo.Delete(ctx, accessTokenExpKey)
}

// Status сводка состояния без секретов
func (s *Store) Status(ctx context.Context) Status {
	creds, _ := s.GetCredentials(ctx)
	st := Status{
		Configured:     creds != nil,
		HasAccessToken: s.GetAccessToken(ctx) != "",
		TokenExpiresAt: s.GetAccessTokenExpiry(ctx),
		TokenExpired:   s.IsTokenExpired(ctx),
		SecurityMode:   string(s.enc.Mode()),
		Degraded:       s.enc.Mode() == crypto.ModeDegraded,
	}
	return st
}

func (s *Store) decrypt(raw string) string {
	plaintext, err := s.enc.Decrypt(raw)
	if err != nil {
		s.log.Warn("failed to decrypt stored value", "error", err)
		return ""
	}
	return plaintext
}
