package reconcile

import (
	"context"

	"booksync/internal/app/books"
)

// Repository хранилище отчетов. UpdateReport возвращает ErrReportFinalized
// для уже завершенного отчета.
type Repository interface {
	CreateReport(ctx context.Context, report *Report) error
	UpdateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, limit int) ([]*Report, error)
}

// Books чтение реестра Zoho Books
type Books interface {
	ListInvoices(ctx context.Context, query books.InvoiceQuery) (*books.InvoicePage, error)
	ListPayments(ctx context.Context, page, perPage int) (*books.PaymentPage, error)
}
