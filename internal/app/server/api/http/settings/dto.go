package settings

import "booksync/internal/domain/settings"

type getInput struct{}

// saveInput тело читается как есть: decimal-поля сериализуются строками
type saveInput struct {
	RawBody []byte `contentType:"application/json"`
}

type settingsOutput struct {
	Body SettingsResponse
}

type SettingsResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Data   *settings.Settings `json:"data,omitempty"`
}
