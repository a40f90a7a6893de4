package reconcile

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) runOp() huma.Operation {
	return huma.Operation{
		OperationID: "reconciliations-run",
		Method:      http.MethodPost,
		Path:        "/api/v1/reconciliations",
		Summary:     "Запустить сверку за период",
		Tags:        []string{"reconciliations"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "reconciliations-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/reconciliations",
		Summary:     "История сверок",
		Tags:        []string{"reconciliations"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "reconciliations-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/reconciliations/{id}",
		Summary:     "Получить отчет сверки",
		Tags:        []string{"reconciliations"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
