package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/paymentterm"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sqlite.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `
	id, user_id, number,
	client_id, client_name, client_address, client_postal_code, client_city,
	client_country, client_vat_number, client_payment_term, client_email,
	line_items, total_excl_tax, total_incl_tax, creation_date, status,
	amount_paid, amount_remaining, version, created_at, updated_at
`

// Create persists a new invoice record. Line items are stored as a JSON
// document; the client snapshot is denormalized into columns so later
// client edits never touch issued invoices.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	lineItems, err := json.Marshal(invoice.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}

	query := `
		INSERT INTO invoices (
			user_id, number,
			client_id, client_name, client_address, client_postal_code, client_city,
			client_country, client_vat_number, client_payment_term, client_email,
			line_items, total_excl_tax, total_incl_tax, creation_date, status,
			amount_paid, amount_remaining, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		invoice.UserID,
		invoice.Number,
		invoice.Client.ClientID,
		invoice.Client.Name,
		invoice.Client.Address,
		invoice.Client.PostalCode,
		invoice.Client.City,
		invoice.Client.Country,
		invoice.Client.VATNumber,
		invoice.Client.PaymentTerm.String(),
		invoice.Client.Email,
		string(lineItems),
		invoice.TotalExclTax,
		invoice.TotalInclTax,
		invoice.CreationDate,
		invoice.Status.String(),
		invoice.AmountPaid,
		invoice.AmountRemaining,
		invoice.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	invoice.ID = id
	return nil
}

// GetByID retrieves an invoice with its payment ledger.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	invoice, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	payments, err := r.loadPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Payments = payments
	return invoice, nil
}

// ListByUser retrieves all invoices of a user, newest first.
func (r *InvoiceRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ? ORDER BY creation_date DESC, id DESC`
	return r.list(ctx, query, userID)
}

// ListOpenByUser retrieves the invoices whose ledger is not settled in full.
func (r *InvoiceRepository) ListOpenByUser(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ? AND status != ? ORDER BY creation_date DESC, id DESC`
	return r.list(ctx, query, userID, entity.StatusPaid.String())
}

func (r *InvoiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Invoice, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, invoice := range invoices {
		payments, err := r.loadPayments(ctx, invoice.ID)
		if err != nil {
			return nil, err
		}
		invoice.Payments = payments
	}
	return invoices, nil
}

// UpdateLedger writes the derived amounts, the status and the payment list
// guarded by the optimistic version. A stale version updates zero rows and
// returns ErrConflict without touching anything.
func (r *InvoiceRepository) UpdateLedger(ctx context.Context, invoice *entity.Invoice, expectedVersion int64) error {
	query := `
		UPDATE invoices
		SET amount_paid = ?, amount_remaining = ?, status = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		invoice.AmountPaid,
		invoice.AmountRemaining,
		invoice.Status.String(),
		invoice.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice ledger", zap.Int64("id", invoice.ID), zap.Error(err))
		return fmt.Errorf("failed to update ledger: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Row gone or version moved underneath us.
		if _, getErr := r.GetByID(ctx, invoice.ID); getErr != nil {
			return getErr
		}
		return entity.ErrConflict
	}

	if _, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM payments WHERE invoice_id = ?`, invoice.ID); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}

	insert := `
		INSERT INTO payments (id, invoice_id, amount, payment_date, method, reference, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, p := range invoice.Payments {
		if _, err := r.db.Executor(ctx).ExecContext(ctx, insert,
			p.ID,
			invoice.ID,
			p.Amount,
			p.PaymentDate,
			p.Method.String(),
			p.Reference,
			p.Comment,
			p.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to write payment: %w", err)
		}
	}

	invoice.Version = expectedVersion + 1
	return nil
}

// UpdateStatus sets the status without touching the ledger columns.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	query := `UPDATE invoices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, status.String(), id)
	if err != nil {
		r.logger.Error("Failed to update invoice status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

// MaxNumberSequence scans numbers shaped PREFIX-YYYYnnn for the highest
// sequence already issued to the user in a year.
func (r *InvoiceRepository) MaxNumberSequence(ctx context.Context, userID int64, prefix string, year int) (int, error) {
	like := fmt.Sprintf("%s-%d%%", prefix, year)
	// The sequence starts right after "PREFIX-YYYY".
	offset := len(prefix) + 6

	query := `
		SELECT COALESCE(MAX(CAST(SUBSTR(number, ?) AS INTEGER)), 0)
		FROM invoices
		WHERE user_id = ? AND number LIKE ?
	`

	var highest int
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, offset, userID, like).Scan(&highest)
	if err != nil {
		r.logger.Error("Failed to scan number sequence", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to scan number sequence: %w", err)
	}
	return highest, nil
}

// ListActiveUsers returns the users who own at least one open invoice.
func (r *InvoiceRepository) ListActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT DISTINCT user_id FROM invoices WHERE status != ?`, entity.StatusPaid.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *InvoiceRepository) loadPayments(ctx context.Context, invoiceID int64) ([]entity.Payment, error) {
	query := `
		SELECT id, amount, payment_date, method, reference, comment, created_at
		FROM payments
		WHERE invoice_id = ?
		ORDER BY payment_date, created_at
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	defer rows.Close()

	var payments []entity.Payment
	for rows.Next() {
		var p entity.Payment
		var method string
		if err := rows.Scan(&p.ID, &p.Amount, &p.PaymentDate, &method, &p.Reference, &p.Comment, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Method = entity.PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var invoice entity.Invoice
	var term, status, lineItems string

	err := row.Scan(
		&invoice.ID,
		&invoice.UserID,
		&invoice.Number,
		&invoice.Client.ClientID,
		&invoice.Client.Name,
		&invoice.Client.Address,
		&invoice.Client.PostalCode,
		&invoice.Client.City,
		&invoice.Client.Country,
		&invoice.Client.VATNumber,
		&term,
		&invoice.Client.Email,
		&lineItems,
		&invoice.TotalExclTax,
		&invoice.TotalInclTax,
		&invoice.CreationDate,
		&status,
		&invoice.AmountPaid,
		&invoice.AmountRemaining,
		&invoice.Version,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.Client.PaymentTerm = paymentterm.Term(term)
	invoice.Status = entity.InvoiceStatus(status)
	if lineItems != "" {
		if err := json.Unmarshal([]byte(lineItems), &invoice.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}
	return &invoice, nil
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
