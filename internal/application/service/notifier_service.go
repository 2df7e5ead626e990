package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/paymentterm"
)

// dueSoonWindow is how many days ahead an unpaid invoice starts counting
// as due soon.
const dueSoonWindow = 3 * 24 * time.Hour

// DueDateCalculator computes contractual due dates.
type DueDateCalculator interface {
	DueDate(creationDate time.Time, term paymentterm.Term) time.Time
}

// NotifierService derives overdue and upcoming-payment notifications from
// open invoices.
type NotifierService interface {
	// Scan evaluates every non-paid invoice of the user and ensures the
	// matching notifications exist. Running it twice without state changes
	// creates nothing new. It returns the number of created notifications.
	Scan(ctx context.Context, userID int64) (int, error)

	List(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type notifierServiceImpl struct {
	invoiceRepo      port.InvoiceRepository
	notificationRepo port.NotificationRepository
	calculator       DueDateCalculator
	clock            port.Clock
	logger           Logger
}

// NewNotifierService creates a new NotifierService.
func NewNotifierService(
	invoiceRepo port.InvoiceRepository,
	notificationRepo port.NotificationRepository,
	calculator DueDateCalculator,
	clock port.Clock,
	logger Logger,
) NotifierService {
	return &notifierServiceImpl{
		invoiceRepo:      invoiceRepo,
		notificationRepo: notificationRepo,
		calculator:       calculator,
		clock:            clock,
		logger:           logger,
	}
}

// Scan classifies every open invoice against its contractual due date.
func (s *notifierServiceImpl) Scan(ctx context.Context, userID int64) (int, error) {
	today := truncateToDay(s.clock.Now())

	invoices, err := s.invoiceRepo.ListOpenByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list open invoices: %w", err)
	}

	created := 0
	for _, inv := range invoices {
		dueDate := s.calculator.DueDate(inv.CreationDate, inv.Client.PaymentTerm)

		switch {
		case today.After(dueDate):
			ok, err := s.ensure(ctx, inv, entity.NotificationOverduePayment,
				fmt.Sprintf("Invoice %s for %s is overdue since %s (%.2f outstanding)",
					inv.Number, inv.Client.Name, dueDate.Format("2006-01-02"), inv.AmountRemaining))
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		case dueDate.Sub(today) <= dueSoonWindow:
			ok, err := s.ensure(ctx, inv, entity.NotificationUpcomingPayment,
				fmt.Sprintf("Invoice %s for %s is due on %s (%.2f outstanding)",
					inv.Number, inv.Client.Name, dueDate.Format("2006-01-02"), inv.AmountRemaining))
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}

	s.logger.Info("Notification scan completed",
		"user_id", userID,
		"open_invoices", len(invoices),
		"created", created)

	return created, nil
}

// ensure creates a notification unless an unread one of the same type
// already exists for the invoice. The store's uniqueness constraint covers
// the window between the check and the insert.
func (s *notifierServiceImpl) ensure(ctx context.Context, inv *entity.Invoice, typ entity.NotificationType, message string) (bool, error) {
	exists, err := s.notificationRepo.ExistsUnread(ctx, inv.ID, typ)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	if exists {
		return false, nil
	}

	n := &entity.Notification{
		ID:            uuid.NewString(),
		UserID:        inv.UserID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		ClientName:    inv.Client.Name,
		Message:       message,
		Type:          typ,
		CreationDate:  s.clock.Now(),
		Amount:        inv.AmountRemaining,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	return true, nil
}

// List returns the user's notifications.
func (s *notifierServiceImpl) List(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags a notification as read. Idempotent.
func (s *notifierServiceImpl) MarkRead(ctx context.Context, id string) error {
	return s.notificationRepo.MarkRead(ctx, id)
}

// Delete removes a notification. Idempotent.
func (s *notifierServiceImpl) Delete(ctx context.Context, id string) error {
	return s.notificationRepo.Delete(ctx, id)
}
