package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/paymentterm"
)

type notifierFixture struct {
	svc              NotifierService
	invoiceRepo      *mockInvoiceRepo
	notificationRepo *mockNotificationRepo
	clock            *mockClock
}

func newNotifierFixture(now time.Time) *notifierFixture {
	f := &notifierFixture{
		invoiceRepo:      newMockInvoiceRepo(),
		notificationRepo: newMockNotificationRepo(),
		clock:            &mockClock{now: now},
	}
	f.svc = NewNotifierService(
		f.invoiceRepo, f.notificationRepo,
		paymentterm.NewCalculator(zap.NewNop()), f.clock, nopLogger{},
	)
	return f
}

func openInvoice(repo *mockInvoiceRepo, userID int64, term paymentterm.Term, created time.Time, remaining float64) *entity.Invoice {
	inv := &entity.Invoice{
		UserID:          userID,
		Number:          "FAC-2024001",
		Client:          entity.ClientSnapshot{ClientID: 3, Name: "Acme SARL", PaymentTerm: term},
		TotalInclTax:    remaining,
		AmountRemaining: remaining,
		CreationDate:    created,
		Status:          entity.StatusSent,
		Version:         1,
	}
	repo.put(inv)
	return inv
}

func TestNotifierService_Scan_Overdue(t *testing.T) {
	// Invoice created 2024-01-01 with 30-day terms is due 2024-01-31.
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	f := newNotifierFixture(now)
	inv := openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)

	created, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notifications, _ := f.svc.List(context.Background(), 7, true)
	require.Len(t, notifications, 1)
	n := notifications[0]
	assert.Equal(t, entity.NotificationOverduePayment, n.Type)
	assert.Equal(t, inv.ID, n.InvoiceID)
	assert.Equal(t, "FAC-2024001", n.InvoiceNumber)
	assert.Equal(t, "Acme SARL", n.ClientName)
	assert.Equal(t, 240.00, n.Amount)
	assert.Contains(t, n.Message, "overdue")
}

func TestNotifierService_Scan_DueSoon(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		expects entity.NotificationType
		none    bool
	}{
		{"due in three days", time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC), entity.NotificationUpcomingPayment, false},
		{"due today", time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), entity.NotificationUpcomingPayment, false},
		{"due in four days", time.Date(2024, time.January, 27, 0, 0, 0, 0, time.UTC), "", true},
		{"day after due date", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), entity.NotificationOverduePayment, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNotifierFixture(tt.now)
			openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
				time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)

			created, err := f.svc.Scan(context.Background(), 7)
			require.NoError(t, err)

			if tt.none {
				assert.Zero(t, created)
				return
			}
			require.Equal(t, 1, created)
			notifications, _ := f.svc.List(context.Background(), 7, true)
			require.Len(t, notifications, 1)
			assert.Equal(t, tt.expects, notifications[0].Type)
		})
	}
}

func TestNotifierService_Scan_Idempotent(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	f := newNotifierFixture(now)
	openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)

	created, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	created, err = f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, created, "second scan with no state change creates nothing")

	notifications, _ := f.svc.List(context.Background(), 7, false)
	assert.Len(t, notifications, 1)
}

func TestNotifierService_Scan_SkipsPaidInvoices(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	f := newNotifierFixture(now)
	inv := openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)
	inv.Status = entity.StatusPaid
	f.invoiceRepo.put(inv)

	created, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestNotifierService_MarkReadAndDelete(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	f := newNotifierFixture(now)
	openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)

	_, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	notifications, _ := f.svc.List(context.Background(), 7, true)
	require.Len(t, notifications, 1)
	id := notifications[0].ID

	require.NoError(t, f.svc.MarkRead(context.Background(), id))
	require.NoError(t, f.svc.MarkRead(context.Background(), id), "mark-read is idempotent")

	unread, _ := f.svc.List(context.Background(), 7, true)
	assert.Empty(t, unread)

	// Once the unread notification is read, a new scan may flag again.
	created, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.NoError(t, f.svc.Delete(context.Background(), id))
	require.NoError(t, f.svc.Delete(context.Background(), id), "delete is idempotent")
}

// TestNotifierService_EndToEnd walks the documented lifecycle: a 240.00
// invoice on 30-day terms created on 2024-01-01 is due 2024-01-31, gets
// exactly one overdue notification on 2024-02-05, and stops being flagged
// once paid in full.
func TestNotifierService_EndToEnd(t *testing.T) {
	now := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
	f := newNotifierFixture(now)
	inv := openInvoice(f.invoiceRepo, 7, paymentterm.Days30,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 240.00)

	ledgerSvc := NewLedgerService(f.invoiceRepo, &mockTxManager{}, f.clock, nopLogger{})

	created, err := f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, created, "exactly one overdue notification")

	paid, err := ledgerSvc.AddPayment(context.Background(), 7, inv.ID, entity.Payment{
		Amount:      240.00,
		PaymentDate: now,
		Method:      entity.MethodTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusPaid, paid.Status)

	created, err = f.svc.Scan(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, created, "paid invoices are never flagged again")
}
