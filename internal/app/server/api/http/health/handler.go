package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
)

// Checker проверка одной зависимости
type Checker func(ctx context.Context) error

type Handler struct {
	checks     map[string]Checker
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(checks map[string]Checker, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		checks:     checks,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	resp := Response{Status: StatusOK}
	if len(h.checks) > 0 {
		resp.Components = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", "component", name, "error", err)
			resp.Components[name] = err.Error()
			resp.Status = StatusDegraded
			continue
		}
		resp.Components[name] = StatusOK
	}

	return &Output{Body: resp}, nil
}
