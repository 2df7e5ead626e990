package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlite.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a notification. A partial unique index allows at most one
// unread row per invoice and type; a racing duplicate insert hits the index
// and is silently dropped.
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, invoice_id, invoice_number, client_name,
			message, type, creation_date, read, amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(invoice_id, type) WHERE read = 0 DO NOTHING
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.InvoiceID,
		n.InvoiceNumber,
		n.ClientName,
		n.Message,
		n.Type.String(),
		n.CreationDate,
		n.Read,
		n.Amount,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ExistsUnread reports whether an unread notification of the type exists
// for the invoice.
func (r *NotificationRepository) ExistsUnread(ctx context.Context, invoiceID int64, typ entity.NotificationType) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE invoice_id = ? AND type = ? AND read = 0
		)
	`

	var exists bool
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, invoiceID, typ.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, invoice_id, invoice_number, client_name,
			message, type, creation_date, read, amount
		FROM notifications
		WHERE user_id = ?
	`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY creation_date DESC, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var typ string
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.InvoiceID,
			&n.InvoiceNumber,
			&n.ClientName,
			&n.Message,
			&typ,
			&n.CreationDate,
			&n.Read,
			&n.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = entity.NotificationType(typ)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read. Missing or already-read rows are
// a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Delete removes a notification. Missing rows are a no-op.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
