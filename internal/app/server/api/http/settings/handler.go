package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/settings"
)

type Handler struct {
	service    settings.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service settings.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "settings_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.saveOp(), h.save)
}

func (h *Handler) get(ctx context.Context, _ *getInput) (*settingsOutput, error) {
	cfg, err := h.service.Load(ctx)
	if err != nil {
		h.log.Error("failed to load settings", "error", err)
		return &settingsOutput{Body: SettingsResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &settingsOutput{Body: SettingsResponse{Status: "Ok", Data: cfg}}, nil
}

// save принимает полный или частичный документ поверх текущих настроек
func (h *Handler) save(ctx context.Context, input *saveInput) (*settingsOutput, error) {
	cfg, err := h.service.Load(ctx)
	if err != nil {
		return &settingsOutput{Body: SettingsResponse{Status: "Error", Error: err.Error()}}, nil
	}
	if err := json.Unmarshal(input.RawBody, cfg); err != nil {
		return nil, huma.Error400BadRequest("malformed settings document", err)
	}

	if err := h.service.Save(ctx, cfg); err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.log.Error("failed to save settings", "error", err)
		return &settingsOutput{Body: SettingsResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &settingsOutput{Body: SettingsResponse{Status: "Ok", Data: cfg}}, nil
}
