package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"booksync/internal/domain/order"
	"booksync/internal/domain/sync"
)

// OrderSource чтение заказов магазина
type OrderSource interface {
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	GetRefund(ctx context.Context, orderID, refundID int64) (*order.Refund, error)
}

type Handler struct {
	service    sync.Servicer
	orders     OrderSource
	settings   sync.SettingsProvider
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, orders OrderSource, settings sync.SettingsProvider, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		orders:     orders,
		settings:   settings,
		log:        log.With("component", "orders_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.syncOrderOp(), h.syncOrder)
	huma.Register(api, h.retryOrderOp(), h.retryOrder)
	huma.Register(api, h.applyPaymentOp(), h.applyPayment)
	huma.Register(api, h.syncRefundsOp(), h.syncRefunds)
	huma.Register(api, h.processRefundOp(), h.processRefund)
	huma.Register(api, h.detectConflictsOp(), h.detectConflicts)
	huma.Register(api, h.getStateOp(), h.getState)
	huma.Register(api, h.deleteStateOp(), h.deleteState)
	huma.Register(api, h.bulkSyncOp(), h.bulkSync)
}

// loadOrder 404 для отсутствующего заказа, 502 если магазин недоступен
func (h *Handler) loadOrder(ctx context.Context, id int64) (*order.Order, error) {
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("order %d not found", id))
		}
		h.log.Error("failed to load order", "order_id", id, "error", err)
		return nil, huma.Error502BadGateway(fmt.Sprintf("load order %d", id), err)
	}
	return o, nil
}

func bodyStatus(success bool) string {
	if success {
		return "Ok"
	}
	return "Error"
}

func (h *Handler) syncOrder(ctx context.Context, input *syncOrderInput) (*syncOrderOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	asDraft := false
	if input.Body.AsDraft != nil {
		asDraft = *input.Body.AsDraft
	} else if cfg, err := h.settings.Load(ctx); err == nil {
		asDraft = cfg.AsDraft(o.Status)
	} else {
		h.log.Warn("failed to load settings, syncing as final invoice", "order_id", o.ID, "error", err)
	}

	var res sync.SyncResult
	if input.Body.ConflictCheck {
		res = h.service.SyncWithConflictCheck(ctx, o, asDraft)
	} else {
		res = h.service.SyncOrder(ctx, o, asDraft)
	}
	return &syncOrderOutput{Body: SyncResponse{Status: bodyStatus(res.Success), Error: res.Error, Data: &res}}, nil
}

func (h *Handler) retryOrder(ctx context.Context, input *orderInput) (*syncOrderOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	res := h.service.RetrySync(ctx, o)
	return &syncOrderOutput{Body: SyncResponse{Status: bodyStatus(res.Success), Error: res.Error, Data: &res}}, nil
}

func (h *Handler) applyPayment(ctx context.Context, input *orderInput) (*paymentOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	res := h.service.ApplyPayment(ctx, o)
	return &paymentOutput{Body: PaymentResponse{Status: bodyStatus(res.Success), Error: res.Error, Data: &res}}, nil
}

func (h *Handler) syncRefunds(ctx context.Context, input *orderInput) (*refundsOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	results := h.service.SyncNewRefunds(ctx, o)
	body := RefundsResponse{Status: "Ok", Data: results}
	for _, r := range results {
		if !r.Success {
			body.Status = "Error"
			body.Error = r.Error
			break
		}
	}
	return &refundsOutput{Body: body}, nil
}

func (h *Handler) processRefund(ctx context.Context, input *refundInput) (*refundOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	refund, err := h.orders.GetRefund(ctx, input.ID, input.RefundID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("refund %d of order %d not found", input.RefundID, input.ID))
		}
		return &refundOutput{Body: RefundResponse{Status: "Error", Error: err.Error()}}, nil
	}
	res := h.service.ProcessRefund(ctx, o, refund)
	return &refundOutput{Body: RefundResponse{Status: bodyStatus(res.Success), Error: res.Error, Data: &res}}, nil
}

func (h *Handler) detectConflicts(ctx context.Context, input *orderInput) (*conflictsOutput, error) {
	o, err := h.loadOrder(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	report, err := h.service.DetectConflicts(ctx, o)
	if err != nil {
		return &conflictsOutput{Body: ConflictsResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &conflictsOutput{Body: ConflictsResponse{Status: "Ok", Data: &report}}, nil
}

func (h *Handler) getState(ctx context.Context, input *orderInput) (*stateOutput, error) {
	st, err := h.service.GetState(ctx, input.ID)
	if err != nil {
		if errors.Is(err, sync.ErrStateNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("order %d has no sync state", input.ID))
		}
		return &stateOutput{Body: StateResponse{Status: "Error", Error: err.Error()}}, nil
	}
	return &stateOutput{Body: StateResponse{Status: "Ok", Data: st}}, nil
}

func (h *Handler) deleteState(ctx context.Context, input *orderInput) (*deleteStateOutput, error) {
	if err := h.service.DeleteState(ctx, input.ID); err != nil {
		return &deleteStateOutput{Body: DeleteResponse{Status: "Error", Error: err.Error()}}, nil
	}
	h.log.Info("sync state deleted", "order_id", input.ID)
	return &deleteStateOutput{Body: DeleteResponse{Status: "Ok", Message: "sync state deleted"}}, nil
}

func (h *Handler) bulkSync(ctx context.Context, input *bulkSyncInput) (*bulkSyncOutput, error) {
	res := h.service.BulkSync(ctx, input.Body.OrderIDs)
	status := "Ok"
	if res.Failed > 0 {
		status = "Error"
	}
	return &bulkSyncOutput{Body: BulkSyncResponse{Status: status, Data: &res}}, nil
}
