package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/app/books"
	"booksync/internal/domain/credential"
)

// Store хранилище учетных данных Zoho
type Store interface {
	Status(ctx context.Context) credential.Status
	SaveCredentials(ctx context.Context, clientID, clientSecret, refreshToken string, opts credential.SaveOptions) error
	SaveAccessToken(ctx context.Context, token string, expiresIn time.Duration) error
}

// Granter обмен grant code на токены
type Granter interface {
	ExchangeGrantCode(ctx context.Context, clientID, clientSecret, grantCode, region string) (books.GrantResult, error)
}

type Handler struct {
	store      Store
	granter    Granter
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store Store, granter Granter, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		granter:    granter,
		log:        log.With("component", "credentials_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.saveOp(), h.save)
	huma.Register(api, h.grantOp(), h.grant)
}

func (h *Handler) status(ctx context.Context, _ *statusInput) (*statusOutput, error) {
	st := h.store.Status(ctx)
	return &statusOutput{Body: StatusResponse{Status: "Ok", Data: &st}}, nil
}

func (h *Handler) save(ctx context.Context, input *saveInput) (*messageOutput, error) {
	b := input.Body
	if err := h.store.SaveCredentials(ctx, b.ClientID, b.ClientSecret, b.RefreshToken, credential.SaveOptions{}); err != nil {
		if errors.Is(err, credential.ErrIncomplete) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &messageOutput{Body: MessageResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &messageOutput{Body: MessageResponse{Status: "Ok", Message: "credentials saved"}}, nil
}

// grant обменивает grant code и сохраняет полученный refresh token
func (h *Handler) grant(ctx context.Context, input *grantInput) (*messageOutput, error) {
	b := input.Body
	res, err := h.granter.ExchangeGrantCode(ctx, b.ClientID, b.ClientSecret, b.GrantCode, b.Region)
	if err != nil {
		h.log.Warn("grant code exchange failed", "error", err)
		if errors.Is(err, books.ErrNoOfflineAccess) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &messageOutput{Body: MessageResponse{Status: "Error", Error: err.Error()}}, nil
	}

	if err := h.store.SaveCredentials(ctx, b.ClientID, b.ClientSecret, res.RefreshToken, credential.SaveOptions{SkipValidation: true}); err != nil {
		return &messageOutput{Body: MessageResponse{Status: "Error", Error: err.Error()}}, nil
	}
	if res.AccessToken != "" {
		if err := h.store.SaveAccessToken(ctx, res.AccessToken, res.ExpiresIn); err != nil {
			h.log.Warn("failed to cache access token from grant", "error", err)
		}
	}
	return &messageOutput{Body: MessageResponse{Status: "Ok", Message: "connected to Zoho Books"}}, nil
}
