package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/ledger"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// maxLedgerRetries bounds optimistic-concurrency retries before the
// conflict is surfaced to the caller.
const maxLedgerRetries = 3

// LedgerService mutates invoice payment ledgers.
type LedgerService interface {
	AddPayment(ctx context.Context, userID, invoiceID int64, payment entity.Payment) (*entity.Invoice, error)
	RemovePayment(ctx context.Context, userID, invoiceID int64, paymentID string) (*entity.Invoice, error)
}

type ledgerServiceImpl struct {
	invoiceRepo port.InvoiceRepository
	txManager   port.TransactionManager
	clock       port.Clock
	logger      Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	invoiceRepo port.InvoiceRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		clock:       clock,
		logger:      logger,
	}
}

// AddPayment validates and appends a payment, then persists the ledger and
// the derived fields atomically. Two concurrent calls on the same invoice
// cannot both pass the over-payment check: the loser of the version race is
// re-read and re-validated against the fresh balance.
func (s *ledgerServiceImpl) AddPayment(ctx context.Context, userID, invoiceID int64, payment entity.Payment) (*entity.Invoice, error) {
	var result *entity.Invoice

	err := s.withLedgerRetry(ctx, invoiceID, func(inv *entity.Invoice, expectedVersion int64) error {
		if inv.UserID != userID {
			return fmt.Errorf("invoice %d: %w", invoiceID, entity.ErrNotFound)
		}
		if _, err := ledger.Add(inv, payment, s.clock.Now()); err != nil {
			return err
		}
		if err := s.persistLedger(ctx, inv, expectedVersion); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment added",
		"invoice_id", invoiceID,
		"amount", payment.Amount,
		"status", result.Status.String(),
		"amount_remaining", result.AmountRemaining)

	return result, nil
}

// RemovePayment deletes a payment wholesale and recomputes the ledger.
func (s *ledgerServiceImpl) RemovePayment(ctx context.Context, userID, invoiceID int64, paymentID string) (*entity.Invoice, error) {
	var result *entity.Invoice

	err := s.withLedgerRetry(ctx, invoiceID, func(inv *entity.Invoice, expectedVersion int64) error {
		if inv.UserID != userID {
			return fmt.Errorf("invoice %d: %w", invoiceID, entity.ErrNotFound)
		}
		if err := ledger.Remove(inv, paymentID); err != nil {
			return err
		}
		if err := s.persistLedger(ctx, inv, expectedVersion); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment removed",
		"invoice_id", invoiceID,
		"payment_id", paymentID,
		"status", result.Status.String())

	return result, nil
}

// withLedgerRetry re-reads the invoice and retries the mutation while the
// optimistic version check keeps losing against concurrent writers.
func (s *ledgerServiceImpl) withLedgerRetry(ctx context.Context, invoiceID int64, mutate func(inv *entity.Invoice, expectedVersion int64) error) error {
	var err error
	for attempt := 1; attempt <= maxLedgerRetries; attempt++ {
		var inv *entity.Invoice
		inv, err = s.invoiceRepo.GetByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}

		err = mutate(inv, inv.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, entity.ErrConflict) {
			return err
		}

		s.logger.Warn("Ledger version conflict, retrying",
			"invoice_id", invoiceID,
			"attempt", attempt)
	}
	return fmt.Errorf("ledger mutation on invoice %d: %w", invoiceID, entity.ErrConflict)
}

// persistLedger writes payments, derived amounts and status as one atomic
// unit guarded by the version token.
func (s *ledgerServiceImpl) persistLedger(ctx context.Context, inv *entity.Invoice, expectedVersion int64) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.invoiceRepo.UpdateLedger(txCtx, inv, expectedVersion)
	})
}
