package credentials

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "credentials-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/credentials/status",
		Summary:     "Статус подключения к Zoho Books",
		Description: "Показывает наличие учетных данных, срок токена и режим шифрования",
		Tags:        []string{"credentials"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) saveOp() huma.Operation {
	return huma.Operation{
		OperationID: "credentials-save",
		Method:      http.MethodPut,
		Path:        "/api/v1/credentials",
		Summary:     "Сохранить учетные данные",
		Tags:        []string{"credentials"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) grantOp() huma.Operation {
	return huma.Operation{
		OperationID: "credentials-grant",
		Method:      http.MethodPost,
		Path:        "/api/v1/credentials/grant",
		Summary:     "Подключить по grant code",
		Tags:        []string{"credentials"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
