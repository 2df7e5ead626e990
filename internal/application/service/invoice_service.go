package service

import (
	"context"
	"fmt"
	"time"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/money"
)

// InvoiceService handles invoice creation and queries outside the ledger.
type InvoiceService interface {
	Create(ctx context.Context, userID, clientID int64, lineItems []entity.LineItem) (*entity.Invoice, error)
	Get(ctx context.Context, userID, id int64) (*entity.Invoice, error)
	List(ctx context.Context, userID int64) ([]*entity.Invoice, error)
	UpdateStatus(ctx context.Context, userID, id int64, status entity.InvoiceStatus) error
}

type invoiceServiceImpl struct {
	invoiceRepo  port.InvoiceRepository
	clientRepo   port.ClientRepository
	sequenceRepo port.SequenceRepository
	txManager    port.TransactionManager
	clock        port.Clock
	numberPrefix string
	logger       Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	invoiceRepo port.InvoiceRepository,
	clientRepo port.ClientRepository,
	sequenceRepo port.SequenceRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	numberPrefix string,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		clock:        clock,
		numberPrefix: numberPrefix,
		logger:       logger,
	}
}

// FormatNumber renders an invoice number as PREFIX-YYYYnnn with the
// sequence zero-padded to three digits.
func FormatNumber(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%d%03d", prefix, year, sequence)
}

// Create builds an invoice for a client from line items. Totals are
// computed from billable lines with cent rounding; comment lines carry no
// amounts.
func (s *invoiceServiceImpl) Create(ctx context.Context, userID, clientID int64, lineItems []entity.LineItem) (*entity.Invoice, error) {
	if len(lineItems) == 0 {
		return nil, entity.NewValidationError("line_items", "invoice needs at least one line item")
	}
	for i, item := range lineItems {
		if item.Kind != entity.LineItemBillable && item.Kind != entity.LineItemComment {
			return nil, entity.NewValidationError("line_items", fmt.Sprintf("line %d has unknown kind %q", i, item.Kind))
		}
		if item.Kind == entity.LineItemBillable && item.Quantity <= 0 {
			return nil, entity.NewValidationError("line_items", fmt.Sprintf("line %d needs a positive quantity", i))
		}
	}

	client, err := s.clientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client.UserID != userID {
		return nil, fmt.Errorf("client %d: %w", clientID, entity.ErrNotFound)
	}

	now := s.clock.Now()
	totalExcl, totalIncl := computeTotals(lineItems)

	inv := &entity.Invoice{
		UserID:          userID,
		Client:          client.Snapshot(),
		LineItems:       lineItems,
		TotalExclTax:    totalExcl,
		TotalInclTax:    totalIncl,
		CreationDate:    truncateToDay(now),
		Status:          entity.StatusPending,
		AmountRemaining: totalIncl,
		Version:         1,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, userID, s.numberPrefix, now.Year())
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		inv.Number = FormatNumber(s.numberPrefix, now.Year(), seq)
		return s.invoiceRepo.Create(txCtx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"client_id", clientID,
		"total_incl_tax", inv.TotalInclTax)

	return inv, nil
}

// Get returns one invoice of the user.
func (s *invoiceServiceImpl) Get(ctx context.Context, userID, id int64) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	return inv, nil
}

// List returns all invoices of the user.
func (s *invoiceServiceImpl) List(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	return s.invoiceRepo.ListByUser(ctx, userID)
}

// UpdateStatus applies a manual status change. The settled statuses are
// owned by the payment ledger and cannot be set by hand.
func (s *invoiceServiceImpl) UpdateStatus(ctx context.Context, userID, id int64, status entity.InvoiceStatus) error {
	if !status.IsValid() {
		return entity.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if status.IsSettled() {
		return entity.NewValidationError("status", "settled statuses are derived from payments")
	}

	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.UserID != userID {
		return fmt.Errorf("invoice %d: %w", id, entity.ErrNotFound)
	}
	if inv.Status.IsSettled() {
		return entity.NewValidationError("status", "invoice status is owned by its payment ledger")
	}

	return s.invoiceRepo.UpdateStatus(ctx, id, status)
}

// computeTotals sums billable lines with cent rounding. Tax rates are
// percentages.
func computeTotals(items []entity.LineItem) (exclTax, inclTax float64) {
	excl := make([]float64, 0, len(items))
	incl := make([]float64, 0, len(items))
	for _, item := range items {
		if item.Kind != entity.LineItemBillable {
			continue
		}
		line := item.Quantity * item.UnitPrice
		excl = append(excl, line)
		incl = append(incl, line*(1+item.TaxRate/100))
	}
	return money.Sum(excl...), money.Sum(incl...)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
