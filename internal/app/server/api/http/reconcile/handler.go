package reconcile

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/reconcile"
)

type Handler struct {
	engine     reconcile.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(engine reconcile.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		engine:     engine,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.runOp(), h.run)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
}

// run сверка выполняется синхронно, отчет возвращается и при ошибке
func (h *Handler) run(ctx context.Context, input *runInput) (*reportOutput, error) {
	report, err := h.engine.Run(ctx, input.Body.PeriodStart, input.Body.PeriodEnd)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidPeriod) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &reportOutput{Body: ReportResponse{Status: "Error", Error: err.Error(), Data: report}}, nil
	}
	return &reportOutput{Body: ReportResponse{Status: "Ok", Data: report}}, nil
}

func (h *Handler) list(ctx context.Context, input *listReportsInput) (*listReportsOutput, error) {
	reports, err := h.engine.ListReports(ctx, input.Limit)
	if err != nil {
		return &listReportsOutput{Body: ListReportsResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &listReportsOutput{Body: ListReportsResponse{Status: "Ok", Data: reports}}, nil
}

func (h *Handler) get(ctx context.Context, input *getReportInput) (*reportOutput, error) {
	report, err := h.engine.GetReport(ctx, input.ID)
	if err != nil {
		if errors.Is(err, reconcile.ErrReportNotFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return &reportOutput{Body: ReportResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &reportOutput{Body: ReportResponse{Status: "Ok", Data: report}}, nil
}
