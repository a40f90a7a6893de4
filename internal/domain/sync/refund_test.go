package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
)

func testRefund() *order.Refund {
	return &order.Refund{
		ID:        77,
		Amount:    dec("-12.00"),
		Reason:    "damaged",
		CreatedAt: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		Lines: []order.RefundLine{
			{ID: 1, Name: "Widget", Quantity: dec("-1"), Total: dec("-10.00")},
		},
	}
}

func TestService_ProcessRefund(t *testing.T) {
	f := newFixture(t)
	o := testOrder()
	f.syncedState(t, o.ID)

	f.books.On("CreateCreditNote", mock.Anything, mock.MatchedBy(func(req books.CreditNoteRequest) bool {
		return req.CustomerID == "C1" &&
			req.InvoiceID == "INV-1" &&
			req.ReferenceNumber == "1001-R77" &&
			req.Date == "2024-03-11" &&
			len(req.LineItems) == 2
	})).Return(&books.CreditNote{CreditNoteID: "CN-1", CreditNoteNumber: "CN-00001", Total: dec("12.00")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-1", "INV-1", mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(dec("12"))
	})).Return(nil).Once()

	res := f.svc.ProcessRefund(context.Background(), o, testRefund())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(77), res.LocalRefundID)
	assert.Equal(t, "CN-1", res.CreditNoteID)
	assert.Empty(t, res.Warnings)

	st, err := f.states.GetState(context.Background(), o.ID)
	require.NoError(t, err)
	m, ok := st.RefundMapping(77)
	require.True(t, ok)
	assert.Equal(t, "CN-1", m.RemoteCreditNoteID)
	assert.Equal(t, []string{EventRefundSynced}, f.events.types())

	f.books.AssertExpectations(t)
	f.books.AssertNotCalled(t, "CreateCashRefund", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ProcessRefund_Idempotent(t *testing.T) {
	f := newFixture(t)
	o := testOrder()
	f.syncedState(t, o.ID)

	f.books.On("CreateCreditNote", mock.Anything, mock.Anything).
		Return(&books.CreditNote{CreditNoteID: "CN-1", Total: dec("12")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-1", "INV-1", mock.Anything).Return(nil).Once()

	first := f.svc.ProcessRefund(context.Background(), o, testRefund())
	second := f.svc.ProcessRefund(context.Background(), o, testRefund())

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, "CN-1", second.CreditNoteID)
	f.books.AssertNumberOfCalls(t, "CreateCreditNote", 1)
}

func TestService_ProcessRefund_SecondaryFailuresAreWarnings(t *testing.T) {
	f := newFixture(t)
	f.cfg.Payments.CreateCashRefund = true
	f.cfg.Payments.RefundAccountID = "ACC-BANK"
	o := testOrder()
	f.syncedState(t, o.ID)

	f.books.On("CreateCreditNote", mock.Anything, mock.Anything).
		Return(&books.CreditNote{CreditNoteID: "CN-1", CreditNoteNumber: "CN-00001", Total: dec("12")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-1", "INV-1", mock.Anything).Return(errors.New("invoice closed")).Once()
	f.books.On("CreateCashRefund", mock.Anything, "CN-1", mock.MatchedBy(func(req books.CashRefundRequest) bool {
		return req.FromAccountID == "ACC-BANK"
	})).Return(nil, errors.New("account locked")).Once()

	res := f.svc.ProcessRefund(context.Background(), o, testRefund())
	require.True(t, res.Success)
	assert.Equal(t, "CN-1", res.CreditNoteID)
	assert.Empty(t, res.RefundID)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "invoice closed")
	assert.Contains(t, res.Warnings[1], "account locked")
}

func TestService_ProcessRefund_CashRefund(t *testing.T) {
	f := newFixture(t)
	f.cfg.Payments.CreateCashRefund = true
	f.cfg.Payments.RefundAccountID = "ACC-BANK"
	o := testOrder()
	f.syncedState(t, o.ID)

	f.books.On("CreateCreditNote", mock.Anything, mock.Anything).
		Return(&books.CreditNote{CreditNoteID: "CN-1", Total: dec("12")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-1", "INV-1", mock.Anything).Return(nil).Once()
	f.books.On("CreateCashRefund", mock.Anything, "CN-1", mock.Anything).
		Return(&books.CashRefund{RefundID: "RF-1"}, nil).Once()

	res := f.svc.ProcessRefund(context.Background(), o, testRefund())
	require.True(t, res.Success)
	assert.Equal(t, "RF-1", res.RefundID)

	st, err := f.states.GetState(context.Background(), o.ID)
	require.NoError(t, err)
	m, ok := st.RefundMapping(77)
	require.True(t, ok)
	assert.Equal(t, "RF-1", m.RemoteRefundID)
}

func TestService_ProcessRefund_Errors(t *testing.T) {
	t.Run("no invoice", func(t *testing.T) {
		f := newFixture(t)
		res := f.svc.ProcessRefund(context.Background(), testOrder(), testRefund())
		assert.False(t, res.Success)
		assert.Equal(t, ErrNoInvoice.Error(), res.Error)
	})

	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		o := testOrder()
		f.syncedState(t, o.ID)
		refund := testRefund()
		refund.Amount = dec("0")

		res := f.svc.ProcessRefund(context.Background(), o, refund)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "no amount")
		f.books.AssertNotCalled(t, "CreateCreditNote", mock.Anything, mock.Anything)
	})

	t.Run("credit note rejected", func(t *testing.T) {
		f := newFixture(t)
		o := testOrder()
		f.syncedState(t, o.ID)
		f.books.On("CreateCreditNote", mock.Anything, mock.Anything).Return(nil, errors.New("rejected")).Once()

		res := f.svc.ProcessRefund(context.Background(), o, testRefund())
		assert.False(t, res.Success)

		st, err := f.states.GetState(context.Background(), o.ID)
		require.NoError(t, err)
		assert.Empty(t, st.RefundMappings)
	})
}

func TestService_SyncNewRefunds(t *testing.T) {
	f := newFixture(t)
	o := testOrder()
	o.Refunds = []order.Refund{*testRefund(), {ID: 78, Amount: dec("3")}}
	require.NoError(t, f.states.SaveState(context.Background(), &State{
		OrderID:        o.ID,
		Status:         StatusSynced,
		InvoiceID:      "INV-1",
		ContactID:      "C1",
		RefundMappings: []RefundMapping{{LocalRefundID: 77, RemoteCreditNoteID: "CN-1"}},
	}))

	f.books.On("CreateCreditNote", mock.Anything, mock.MatchedBy(func(req books.CreditNoteRequest) bool {
		return req.ReferenceNumber == "1001-R78"
	})).Return(&books.CreditNote{CreditNoteID: "CN-2", Total: dec("3")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-2", "INV-1", mock.Anything).Return(nil).Once()

	results := f.svc.SyncNewRefunds(context.Background(), o)
	require.Len(t, results, 1)
	assert.Equal(t, int64(78), results[0].LocalRefundID)
	assert.True(t, results[0].Success)

	st, err := f.states.GetState(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, st.RefundMappings, 2)
}

func TestRefundLines(t *testing.T) {
	o := &order.Order{Number: "1001"}

	t.Run("aggregate", func(t *testing.T) {
		lines := refundLines(o, &order.Refund{ID: 1}, dec("15"))
		require.Len(t, lines, 1)
		assert.True(t, lines[0].Rate.Equal(dec("15")))
		assert.Contains(t, lines[0].Name, "1001")
	})

	t.Run("itemized with remainder", func(t *testing.T) {
		refund := &order.Refund{Lines: []order.RefundLine{
			{Name: "Widget", Quantity: dec("-2"), Total: dec("-20")},
			{Name: "Skipped", Quantity: dec("-1"), Total: dec("0")},
		}}
		lines := refundLines(o, refund, dec("25"))
		require.Len(t, lines, 2)
		assert.True(t, lines[0].Rate.Equal(dec("10")))
		assert.True(t, lines[0].Quantity.Equal(dec("2")))
		assert.True(t, lines[1].Rate.Equal(dec("5")))
	})

	t.Run("fully itemized", func(t *testing.T) {
		refund := &order.Refund{Lines: []order.RefundLine{{Name: "Widget", Quantity: dec("1"), Total: dec("25")}}}
		lines := refundLines(o, refund, dec("25"))
		assert.Len(t, lines, 1)
	})
}
