package settings

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Настройки синхронизации",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) saveOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-save",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Сохранить настройки",
		Description: "Поля, которых нет в теле, остаются без изменений",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
