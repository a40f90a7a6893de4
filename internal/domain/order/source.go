package order

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("order not found")

// ListQuery фильтр выборки заказов
type ListQuery struct {
	After    time.Time
	Before   time.Time
	Statuses []string
	Page     int
	PerPage  int
}

// Source внешний источник заказов
type Source interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// ListOrders заказы, созданные в периоде. Page 0 означает все страницы сразу
	ListOrders(ctx context.Context, q ListQuery) ([]*Order, error)
	GetRefund(ctx context.Context, orderID, refundID int64) (*Refund, error)
	AddNote(ctx context.Context, orderID int64, note string) error
}
