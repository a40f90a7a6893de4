package credential

import "time"

// Credentials долгоживущие OAuth данные, вводятся пользователем один раз
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// Complete проверяет, что все поля заполнены
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// AccessToken короткоживущий токен доступа
type AccessToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveOptions управляет сохранением учетных данных
type SaveOptions struct {
	// SkipValidation отключает хуки валидации. Хуки, которым нужно что-то
	// сохранить, получают контекст, в котором это уже выставлено.
	SkipValidation bool
}

// Status сводка для админки, без секретов
type Status struct {
	Configured     bool       `json:"configured"`
	HasAccessToken bool       `json:"has_access_token"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	TokenExpired   bool       `json:"token_expired"`
	SecurityMode   string     `json:"security_mode"`
	Degraded       bool       `json:"degraded"`
}
