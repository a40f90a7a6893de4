package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"booksync/internal/app/books"
)

func TestService_ConcurrentPaymentAndRefundKeepBothUpdates(t *testing.T) {
	f := newFixture(t)
	o := testOrder()
	f.syncedState(t, o.ID)

	inCreditNote := make(chan struct{})
	release := make(chan struct{})
	f.books.On("CreateCreditNote", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(inCreditNote)
			<-release
		}).
		Return(&books.CreditNote{CreditNoteID: "CN-1", Total: dec("12")}, nil).Once()
	f.books.On("ApplyCreditNote", mock.Anything, "CN-1", "INV-1", mock.Anything).Return(nil).Once()
	f.books.On("GetInvoice", mock.Anything, "INV-1").
		Return(&books.Invoice{InvoiceID: "INV-1", Status: books.InvoiceSent, CustomerID: "C1", Balance: dec("25.00")}, nil).Once()
	f.books.On("CreatePayment", mock.Anything, mock.Anything).
		Return(&books.Payment{PaymentID: "P-1"}, nil).Once()

	refundDone := make(chan RefundResult, 1)
	go func() {
		refundDone <- f.svc.ProcessRefund(context.Background(), o, testRefund())
	}()
	<-inCreditNote

	paymentDone := make(chan PaymentResult, 1)
	go func() {
		paymentDone <- f.svc.ApplyPayment(context.Background(), o)
	}()

	// оплата ждет, пока возврат держит заказ
	select {
	case <-paymentDone:
		t.Fatal("payment finished while the refund was still in progress")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	refund := <-refundDone
	payment := <-paymentDone
	require.True(t, refund.Success, refund.Error)
	require.True(t, payment.Success, payment.Error)

	st, err := f.states.GetState(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "P-1", st.PaymentID)
	_, ok := st.RefundMapping(77)
	assert.True(t, ok)
	assert.Zero(t, f.svc.locks.size())
}

func TestService_LockWaitHonorsContext(t *testing.T) {
	f := newFixture(t)
	o := testOrder()
	f.syncedState(t, o.ID)

	unlock, err := f.svc.locks.acquire(context.Background(), o.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := f.svc.ApplyPayment(ctx, o)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())

	unlock()
	assert.Zero(t, f.svc.locks.size())
	f.books.AssertNotCalled(t, "GetInvoice", mock.Anything, mock.Anything)
}

func TestService_LinkInvoice(t *testing.T) {
	f := newFixture(t)
	inv := &books.Invoice{InvoiceID: "INV-7", InvoiceNumber: "INV-000007", CustomerID: "C7", Status: books.InvoiceSent}

	linked, err := f.svc.LinkInvoice(context.Background(), 42, inv)
	require.NoError(t, err)
	assert.True(t, linked)

	st, err := f.states.GetState(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-7", st.InvoiceID)
	assert.Equal(t, "C7", st.ContactID)
	assert.Equal(t, StatusSynced, st.Status)

	// уже связанный заказ не перезаписывается
	linked, err = f.svc.LinkInvoice(context.Background(), 42, &books.Invoice{InvoiceID: "INV-8"})
	require.NoError(t, err)
	assert.False(t, linked)
	st, err = f.states.GetState(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-7", st.InvoiceID)
}
