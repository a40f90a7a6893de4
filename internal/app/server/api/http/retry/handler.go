package retry

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/retry"
)

// Runner прогон пакета повторов
type Runner interface {
	Run(ctx context.Context) (retry.RunStats, error)
}

type runInput struct{}

type runOutput struct {
	Body RunResponse
}

type RunResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   *retry.RunStats `json:"data,omitempty"`
}

type Handler struct {
	runner     Runner
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(runner Runner, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		runner:     runner,
		log:        log.With("component", "retry_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "retry-run",
		Method:      http.MethodPost,
		Path:        "/api/v1/retry/run",
		Summary:     "Запустить повтор неудачных синхронизаций",
		Tags:        []string{"retry"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}, h.run)
}

func (h *Handler) run(ctx context.Context, _ *runInput) (*runOutput, error) {
	stats, err := h.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, retry.ErrRemoteUnavailable) {
			return nil, huma.Error503ServiceUnavailable(err.Error())
		}
		return &runOutput{Body: RunResponse{Status: "Error", Error: err.Error(), Data: &stats}}, nil
	}
	return &runOutput{Body: RunResponse{Status: "Ok", Data: &stats}}, nil
}
