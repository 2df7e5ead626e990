package port

import (
	"context"
	"time"

	"github.com/facturio/facturio/internal/domain/entity"
)

// ClientRepository defines persistence operations for Client.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, id int64) (*entity.Client, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Client, error)
	Update(ctx context.Context, client *entity.Client) error
}

// InvoiceRepository defines persistence operations for Invoice and its
// embedded payment ledger.
type InvoiceRepository interface {
	// Create persists a new invoice with its line items. The assigned id is
	// written back to the entity.
	Create(ctx context.Context, invoice *entity.Invoice) error

	// GetByID loads an invoice with its payments.
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)

	// ListByUser loads all invoices of a user, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error)

	// ListOpenByUser loads the invoices whose status is not Paid.
	ListOpenByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error)

	// UpdateLedger persists the payment list and the derived amounts and
	// status in one atomic write, guarded by the optimistic version:
	// expectedVersion must still match the stored row or ErrConflict is
	// returned and nothing changes. On success the entity's version is the
	// stored version plus one.
	UpdateLedger(ctx context.Context, invoice *entity.Invoice, expectedVersion int64) error

	// UpdateStatus sets the status of an invoice without touching the ledger.
	UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error

	// MaxNumberSequence scans a user's invoice numbers for the given year
	// prefix and returns the highest embedded sequence, zero when none.
	// Used only to seed the dedicated sequence counter.
	MaxNumberSequence(ctx context.Context, userID int64, prefix string, year int) (int, error)

	// ListActiveUsers returns the users who own at least one invoice that
	// is not Paid. Background sweeps iterate over this set.
	ListActiveUsers(ctx context.Context) ([]int64, error)
}

// TemplateRepository defines persistence operations for RecurringTemplate.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.RecurringTemplate) error
	GetByID(ctx context.Context, id int64) (*entity.RecurringTemplate, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.RecurringTemplate, error)

	// ListDue returns the active templates of a user whose next emission is
	// on or before the given day (date-only comparison).
	ListDue(ctx context.Context, userID int64, day time.Time) ([]*entity.RecurringTemplate, error)

	// CountByUser returns the number of templates a user owns, for plan
	// limit checks.
	CountByUser(ctx context.Context, userID int64) (int, error)

	// Advance records a generation: compare-and-set on the previous
	// nextEmission value so a concurrent or retried generation of the same
	// occurrence updates zero rows and gets ErrConflict.
	Advance(ctx context.Context, tpl *entity.RecurringTemplate, prevNextEmission time.Time) error

	// SetActive activates or retires a template.
	SetActive(ctx context.Context, id int64, active bool) error

	// ListActiveUsers returns the users who own at least one active
	// template. Background sweeps iterate over this set.
	ListActiveUsers(ctx context.Context) ([]int64, error)
}

// SequenceRepository allocates invoice number sequences.
type SequenceRepository interface {
	// Next atomically increments and returns the per-user-per-year counter.
	// On first use for a year the counter is seeded from the existing
	// invoice numbers so manually created invoices never collide.
	Next(ctx context.Context, userID int64, prefix string, year int) (int, error)
}

// NotificationRepository defines persistence operations for Notification.
type NotificationRepository interface {
	// Create inserts a notification. The store enforces at most one unread
	// notification per invoice and type; a concurrent duplicate insert is
	// silently dropped, keeping creation idempotent.
	Create(ctx context.Context, n *entity.Notification) error

	// ExistsUnread reports whether an unread notification of the given type
	// already exists for the invoice.
	ExistsUnread(ctx context.Context, invoiceID int64, typ entity.NotificationType) (bool, error)

	// ListByUser returns a user's notifications, newest first.
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error)

	// MarkRead flags a notification as read. Already-read records are a
	// no-op.
	MarkRead(ctx context.Context, id string) error

	// Delete removes a notification. Missing records are a no-op.
	Delete(ctx context.Context, id string) error
}
