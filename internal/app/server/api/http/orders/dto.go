package orders

import (
	"booksync/internal/domain/sync"
)

type syncOrderInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"WooCommerce order id"`
	Body SyncOrderRequest
}

type SyncOrderRequest struct {
	// AsDraft nil означает решение по триггеру статуса заказа
	AsDraft       *bool `json:"as_draft,omitempty" doc:"Create the invoice as a draft; defaults to the status trigger"`
	ConflictCheck bool  `json:"conflict_check,omitempty" doc:"Link an existing matching invoice instead of creating one"`
}

type syncOrderOutput struct {
	Body SyncResponse
}

type SyncResponse struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Data   *sync.SyncResult `json:"data,omitempty"`
}

type orderInput struct {
	ID int64 `path:"id" minimum:"1" doc:"WooCommerce order id"`
}

type paymentOutput struct {
	Body PaymentResponse
}

type PaymentResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Data   *sync.PaymentResult `json:"data,omitempty"`
}

type refundInput struct {
	ID       int64 `path:"id" minimum:"1"`
	RefundID int64 `path:"refund_id" minimum:"1"`
}

type refundOutput struct {
	Body RefundResponse
}

type RefundResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Data   *sync.RefundResult `json:"data,omitempty"`
}

type refundsOutput struct {
	Body RefundsResponse
}

type RefundsResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Data   []sync.RefundResult `json:"data,omitempty"`
}

type conflictsOutput struct {
	Body ConflictsResponse
}

type ConflictsResponse struct {
	Status string               `json:"status"`
	Error  string               `json:"error,omitempty"`
	Data   *sync.ConflictReport `json:"data,omitempty"`
}

type stateOutput struct {
	Body StateResponse
}

type StateResponse struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Data   *sync.State `json:"data,omitempty"`
}

type deleteStateOutput struct {
	Body DeleteResponse
}

type DeleteResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type bulkSyncInput struct {
	Body BulkSyncRequest
}

type BulkSyncRequest struct {
	OrderIDs []int64 `json:"order_ids" minItems:"1" maxItems:"500"`
}

type bulkSyncOutput struct {
	Body BulkSyncResponse
}

type BulkSyncResponse struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Data   *sync.BulkResult `json:"data,omitempty"`
}
