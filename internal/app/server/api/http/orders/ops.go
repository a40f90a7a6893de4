package orders

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncOrderOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/sync",
		Summary:     "Синхронизировать заказ",
		Description: "Создает счет в Zoho Books; повторный вызов возвращает уже созданный счет",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) retryOrderOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-retry",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/retry",
		Summary:     "Повторить синхронизацию заказа",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) applyPaymentOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-apply-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/payment",
		Summary:     "Записать оплату заказа",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) syncRefundsOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-sync-refunds",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/refunds",
		Summary:     "Синхронизировать новые возвраты заказа",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) processRefundOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-process-refund",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/{id}/refunds/{refund_id}",
		Summary:     "Создать кредит-ноту для возврата",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) detectConflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/{id}/conflicts",
		Summary:     "Проверить конфликты заказа",
		Description: "Ищет существующий счет и проверяет валюту контакта, ничего не изменяя",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) getStateOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-get-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/{id}/state",
		Summary:     "Получить состояние синхронизации",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) deleteStateOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-delete-state",
		Method:      http.MethodDelete,
		Path:        "/api/v1/orders/{id}/state",
		Summary:     "Удалить состояние синхронизации",
		Description: "Только локальная очистка, счет в Zoho Books не затрагивается",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) bulkSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-bulk-sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders/bulk-sync",
		Summary:     "Массовая синхронизация заказов",
		Tags:        []string{"orders"},
		Middlewares: h.middleware,
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
