package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
)

// SequenceRepository implements port.SequenceRepository on a dedicated
// counter table. The first allocation of a user-year seeds the counter
// from the invoice numbers already issued, so imported or hand-numbered
// invoices never collide with generated ones.
type SequenceRepository struct {
	db          *sqlite.DB
	invoiceRepo port.InvoiceRepository
	logger      *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sqlite.DB, invoiceRepo port.InvoiceRepository, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		db:          db,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// Next atomically increments and returns the per-user-per-year counter.
// Callers run inside the transaction that also inserts the invoice, so an
// aborted insert returns the number to the pool.
func (r *SequenceRepository) Next(ctx context.Context, userID int64, prefix string, year int) (int, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE invoice_sequences
		SET value = value + 1
		WHERE user_id = ? AND prefix = ? AND year = ?
	`, userID, prefix, year)
	if err != nil {
		return 0, fmt.Errorf("failed to bump sequence: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		seed, err := r.invoiceRepo.MaxNumberSequence(ctx, userID, prefix, year)
		if err != nil {
			return 0, err
		}
		// A concurrent first allocation may have inserted the row already;
		// the upsert falls back to a plain increment in that case.
		_, err = r.db.Executor(ctx).ExecContext(ctx, `
			INSERT INTO invoice_sequences (user_id, prefix, year, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, prefix, year) DO UPDATE SET value = value + 1
		`, userID, prefix, year, seed+1)
		if err != nil {
			return 0, fmt.Errorf("failed to seed sequence: %w", err)
		}

		r.logger.Info("Seeded invoice sequence",
			zap.Int64("user_id", userID),
			zap.String("prefix", prefix),
			zap.Int("year", year),
			zap.Int("seed", seed))
	}

	var value int
	err = r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT value FROM invoice_sequences
		WHERE user_id = ? AND prefix = ? AND year = ?
	`, userID, prefix, year).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return value, nil
}

// Verify interface compliance
var _ port.SequenceRepository = (*SequenceRepository)(nil)
