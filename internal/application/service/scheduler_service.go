package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/schedule"
)

// PlanResourceTemplates is the resource kind reported to the plan limit
// check when creating recurring templates.
const PlanResourceTemplates = "recurring_templates"

// SchedulerService manages recurring templates and materializes invoices
// from them.
type SchedulerService interface {
	CreateTemplate(ctx context.Context, tpl *entity.RecurringTemplate) (*entity.RecurringTemplate, error)
	GetTemplate(ctx context.Context, userID, id int64) (*entity.RecurringTemplate, error)
	ListTemplates(ctx context.Context, userID int64) ([]*entity.RecurringTemplate, error)
	SetTemplateActive(ctx context.Context, userID, id int64, active bool) error

	// Generate materializes one invoice from a template and advances it.
	Generate(ctx context.Context, userID, templateID int64) (*entity.Invoice, error)

	// RunDueScan generates an invoice for every active template of the user
	// whose next emission is due today or earlier.
	RunDueScan(ctx context.Context, userID int64) ([]*entity.Invoice, error)
}

type schedulerServiceImpl struct {
	templateRepo port.TemplateRepository
	invoiceRepo  port.InvoiceRepository
	clientRepo   port.ClientRepository
	sequenceRepo port.SequenceRepository
	planLimits   port.PlanLimitChecker
	txManager    port.TransactionManager
	clock        port.Clock
	numberPrefix string
	logger       Logger
}

// NewSchedulerService creates a new SchedulerService.
func NewSchedulerService(
	templateRepo port.TemplateRepository,
	invoiceRepo port.InvoiceRepository,
	clientRepo port.ClientRepository,
	sequenceRepo port.SequenceRepository,
	planLimits port.PlanLimitChecker,
	txManager port.TransactionManager,
	clock port.Clock,
	numberPrefix string,
	logger Logger,
) SchedulerService {
	return &schedulerServiceImpl{
		templateRepo: templateRepo,
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		sequenceRepo: sequenceRepo,
		planLimits:   planLimits,
		txManager:    txManager,
		clock:        clock,
		numberPrefix: numberPrefix,
		logger:       logger,
	}
}

// CreateTemplate validates and persists a new recurring template. The plan
// limit is consulted here, not when generating from existing templates.
func (s *schedulerServiceImpl) CreateTemplate(ctx context.Context, tpl *entity.RecurringTemplate) (*entity.RecurringTemplate, error) {
	if !tpl.Frequency.IsValid() {
		return nil, entity.NewValidationError("frequency", fmt.Sprintf("unknown frequency %q", tpl.Frequency))
	}
	if tpl.EmissionDay < 1 || tpl.EmissionDay > 31 {
		return nil, entity.NewValidationError("emission_day", "emission day must be between 1 and 31")
	}
	if tpl.RepetitionLimit < 0 {
		return nil, entity.NewValidationError("repetition_limit", "repetition limit cannot be negative")
	}
	for _, m := range tpl.EmissionMonths {
		if m < 1 || m > 12 {
			return nil, entity.NewValidationError("emission_months", fmt.Sprintf("invalid month %d", m))
		}
	}
	if tpl.Frequency != entity.FrequencyMonthly && len(tpl.EmissionMonths) == 0 {
		tpl.EmissionMonths = tpl.Frequency.DefaultEmissionMonths()
	}

	client, err := s.clientRepo.GetByID(ctx, tpl.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client.UserID != tpl.UserID {
		return nil, fmt.Errorf("client %d: %w", tpl.ClientID, entity.ErrNotFound)
	}

	count, err := s.templateRepo.CountByUser(ctx, tpl.UserID)
	if err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}
	reached, err := s.planLimits.HasReachedPlanLimit(ctx, tpl.UserID, PlanResourceTemplates, count)
	if err != nil {
		return nil, fmt.Errorf("check plan limit: %w", err)
	}
	if reached {
		return nil, entity.NewValidationError("plan", "recurring template limit reached for this plan")
	}

	now := s.clock.Now()
	if tpl.NextEmission.IsZero() {
		tpl.NextEmission = schedule.Next(tpl.Frequency, tpl.EmissionDay, tpl.EmissionMonths, now)
	}
	tpl.Active = true
	tpl.RepetitionsDone = 0

	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("Recurring template created",
		"template_id", tpl.ID,
		"client_id", tpl.ClientID,
		"frequency", tpl.Frequency.String(),
		"next_emission", tpl.NextEmission.Format("2006-01-02"))

	return tpl, nil
}

// GetTemplate returns one template of the user.
func (s *schedulerServiceImpl) GetTemplate(ctx context.Context, userID, id int64) (*entity.RecurringTemplate, error) {
	tpl, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.UserID != userID {
		return nil, fmt.Errorf("template %d: %w", id, entity.ErrNotFound)
	}
	return tpl, nil
}

// ListTemplates returns all templates of the user.
func (s *schedulerServiceImpl) ListTemplates(ctx context.Context, userID int64) ([]*entity.RecurringTemplate, error) {
	return s.templateRepo.ListByUser(ctx, userID)
}

// SetTemplateActive retires or reactivates a template. Reactivation is
// refused once the repetition limit is exhausted.
func (s *schedulerServiceImpl) SetTemplateActive(ctx context.Context, userID, id int64, active bool) error {
	tpl, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return err
	}
	if active && tpl.LimitReached() {
		return entity.NewValidationError("active", "repetition limit already reached")
	}
	return s.templateRepo.SetActive(ctx, id, active)
}

// Generate materializes one invoice from the template. Amounts and line
// items are copied verbatim; the template's stored totals are authoritative
// and never recomputed. Invoice creation and template advancement share one
// transaction, and the advancement compare-and-sets the previous
// nextEmission so a crashed-and-retried or concurrent generation of the
// same occurrence cannot double-issue.
func (s *schedulerServiceImpl) Generate(ctx context.Context, userID, templateID int64) (*entity.Invoice, error) {
	tpl, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, entity.NewValidationError("template", "template is not active")
	}

	client, err := s.clientRepo.GetByID(ctx, tpl.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	now := s.clock.Now()
	prevNextEmission := tpl.NextEmission

	inv := &entity.Invoice{
		UserID:          userID,
		Client:          client.Snapshot(),
		LineItems:       tpl.LineItems,
		TotalExclTax:    tpl.AmountExclTax,
		TotalInclTax:    tpl.AmountInclTax,
		CreationDate:    truncateToDay(now),
		Status:          entity.StatusPending,
		AmountRemaining: tpl.AmountInclTax,
		Version:         1,
	}

	emission := now
	tpl.LastEmission = &emission
	tpl.NextEmission = schedule.Next(tpl.Frequency, tpl.EmissionDay, tpl.EmissionMonths, now)
	tpl.RepetitionsDone++
	if tpl.LimitReached() {
		tpl.Active = false
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seq, err := s.sequenceRepo.Next(txCtx, userID, s.numberPrefix, now.Year())
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		inv.Number = FormatNumber(s.numberPrefix, now.Year(), seq)

		if err := s.invoiceRepo.Create(txCtx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return s.templateRepo.Advance(txCtx, tpl, prevNextEmission)
	})
	if err != nil {
		if errors.Is(err, entity.ErrConflict) {
			s.logger.Warn("Template already advanced for this occurrence",
				"template_id", templateID,
				"next_emission", prevNextEmission.Format("2006-01-02"))
		}
		return nil, err
	}

	s.logger.Info("Invoice generated from template",
		"template_id", templateID,
		"invoice_id", inv.ID,
		"number", inv.Number,
		"repetitions_done", tpl.RepetitionsDone,
		"active", tpl.Active)

	return inv, nil
}

// RunDueScan generates invoices for every active template whose next
// emission date has been reached.
func (s *schedulerServiceImpl) RunDueScan(ctx context.Context, userID int64) ([]*entity.Invoice, error) {
	today := truncateToDay(s.clock.Now())

	due, err := s.templateRepo.ListDue(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("list due templates: %w", err)
	}

	var generated []*entity.Invoice
	for _, tpl := range due {
		inv, err := s.Generate(ctx, userID, tpl.ID)
		if err != nil {
			// A conflict means another scan already took this occurrence;
			// skip it and keep going.
			if errors.Is(err, entity.ErrConflict) {
				continue
			}
			return generated, fmt.Errorf("generate from template %d: %w", tpl.ID, err)
		}
		generated = append(generated, inv)
	}

	s.logger.Info("Due scan completed",
		"user_id", userID,
		"due_templates", len(due),
		"generated", len(generated))

	return generated, nil
}
