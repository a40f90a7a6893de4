package sync

import (
	"context"

	"github.com/shopspring/decimal"

	"booksync/internal/app/books"
	"booksync/internal/domain/settings"
)

// StateRepository хранилище состояний синхронизации
type StateRepository interface {
	// GetState возвращает ErrStateNotFound, если заказ еще не синхронизировался
	GetState(ctx context.Context, orderID int64) (*State, error)
	SaveState(ctx context.Context, state *State) error
	DeleteState(ctx context.Context, orderID int64) error
	ListByStatus(ctx context.Context, status Status, limit int) ([]*State, error)
}

// Books операции Zoho Books, нужные синхронизации
type Books interface {
	FindContactByEmail(ctx context.Context, email string) (*books.Contact, error)
	GetContact(ctx context.Context, contactID string) (*books.Contact, error)
	CreateContact(ctx context.Context, contact books.Contact) (*books.Contact, error)
	UpdateContact(ctx context.Context, contactID string, update books.ContactUpdate) (*books.Contact, error)
	CurrencyID(ctx context.Context, code string) (string, error)

	FindItemBySKU(ctx context.Context, sku string) (*books.Item, error)
	CreateItem(ctx context.Context, item books.Item) (*books.Item, error)

	FindInvoiceByReference(ctx context.Context, reference string) (*books.Invoice, error)
	FindInvoiceByNumber(ctx context.Context, number string) (*books.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*books.Invoice, error)
	CreateInvoice(ctx context.Context, req books.InvoiceRequest) (*books.Invoice, error)
	MarkInvoiceSent(ctx context.Context, invoiceID string) error

	CreatePayment(ctx context.Context, req books.PaymentRequest) (*books.Payment, error)

	CreateCreditNote(ctx context.Context, req books.CreditNoteRequest) (*books.CreditNote, error)
	ApplyCreditNote(ctx context.Context, creditNoteID, invoiceID string, amount decimal.Decimal) error
	CreateCashRefund(ctx context.Context, creditNoteID string, req books.CashRefundRequest) (*books.CashRefund, error)
}

// SettingsProvider источник текущих бизнес-настроек
type SettingsProvider interface {
	Load(ctx context.Context) (*settings.Settings, error)
}

// Publisher получатель доменных событий
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
