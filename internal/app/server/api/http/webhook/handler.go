package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/app/commerce"
	"booksync/internal/domain/order"
	"booksync/internal/domain/sync"
)

// OrderHandler реакция на изменение заказа
type OrderHandler interface {
	HandleOrder(ctx context.Context, o *order.Order) sync.TriggerResult
}

// OrderFetcher полная версия заказа вместе с возвратами
type OrderFetcher interface {
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

type Handler struct {
	service    OrderHandler
	orders     OrderFetcher
	secret     string
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service OrderHandler, orders OrderFetcher, secret string, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		orders:     orders,
		secret:     secret,
		log:        log.With("component", "webhook_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "webhook-woocommerce",
		Method:        http.MethodPost,
		Path:          "/api/v1/webhooks/woocommerce",
		Summary:       "Вебхук заказов WooCommerce",
		Description:   "Проверяет подпись и запускает синхронизацию по триггерам статусов",
		Tags:          []string{"webhook"},
		Middlewares:   h.middleware,
		DefaultStatus: http.StatusOK,
	}, h.delivery)
}

func (h *Handler) delivery(ctx context.Context, input *deliveryInput) (*deliveryOutput, error) {
	// при создании вебхука WooCommerce шлет неподписанный ping в form-кодировке
	if input.Topic == "" && bytes.HasPrefix(input.RawBody, []byte("webhook_id=")) {
		return ignored(), nil
	}

	if err := commerce.VerifySignature(input.RawBody, h.secret, input.Signature); err != nil {
		h.log.Warn("rejected webhook delivery", "topic", input.Topic, "error", err)
		return nil, huma.Error401Unauthorized(err.Error())
	}

	if input.Topic != "" && !strings.HasPrefix(input.Topic, "order.") {
		return ignored(), nil
	}

	o, err := commerce.DecodeOrder(input.RawBody)
	if err != nil {
		if errors.Is(err, commerce.ErrUnsupportedPayload) {
			return ignored(), nil
		}
		return nil, huma.Error400BadRequest("malformed order payload", err)
	}

	// в теле вебхука возвраты без позиций
	if len(o.Refunds) > 0 {
		full, err := h.orders.GetOrder(ctx, o.ID)
		if err != nil {
			h.log.Error("failed to fetch order for webhook", "order_id", o.ID, "error", err)
			return nil, huma.Error502BadGateway("failed to fetch order", err)
		}
		o = full
	}

	res := h.service.HandleOrder(ctx, o)
	h.log.Info("webhook processed", "order_id", o.ID, "topic", input.Topic, "skipped", res.Skipped)

	out := &deliveryOutput{Body: DeliveryResponse{Status: "Ok", Result: ResultProcessed, Data: &res}}
	if res.Sync != nil && !res.Sync.Success {
		out.Body.Status = "Error"
		out.Body.Error = res.Sync.Error
	}
	return out, nil
}

func ignored() *deliveryOutput {
	return &deliveryOutput{Body: DeliveryResponse{Status: "Ok", Result: ResultIgnored}}
}
