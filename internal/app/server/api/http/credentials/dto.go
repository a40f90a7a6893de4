package credentials

import "booksync/internal/domain/credential"

type statusInput struct{}

type statusOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Data   *credential.Status `json:"data,omitempty"`
}

type saveInput struct {
	Body SaveRequest
}

type SaveRequest struct {
	ClientID     string `json:"client_id" minLength:"1"`
	ClientSecret string `json:"client_secret" minLength:"1"`
	RefreshToken string `json:"refresh_token" minLength:"1"`
}

type grantInput struct {
	Body GrantRequest
}

type GrantRequest struct {
	ClientID     string `json:"client_id" minLength:"1"`
	ClientSecret string `json:"client_secret" minLength:"1"`
	GrantCode    string `json:"grant_code" minLength:"1" doc:"Self-client grant code with offline access"`
	Region       string `json:"region,omitempty" enum:"us,eu,in,au,jp,cn" doc:"Defaults to the configured region"`
}

type messageOutput struct {
	Body MessageResponse
}

type MessageResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
