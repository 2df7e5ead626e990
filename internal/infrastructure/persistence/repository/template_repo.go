package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
)

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new recurring template repository
func NewTemplateRepository(db *sqlite.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

const templateColumns = `
	id, user_id, client_id, line_items, frequency,
	amount_excl_tax, amount_incl_tax, emission_day, emission_months,
	next_emission, last_emission, active, repetition_limit, repetitions_done,
	created_at, updated_at
`

// Create persists a new recurring template.
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.RecurringTemplate) error {
	lineItems, err := json.Marshal(tpl.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}
	months, err := encodeMonths(tpl.EmissionMonths)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO recurring_templates (
			user_id, client_id, line_items, frequency,
			amount_excl_tax, amount_incl_tax, emission_day, emission_months,
			next_emission, last_emission, active, repetition_limit, repetitions_done
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		tpl.UserID,
		tpl.ClientID,
		string(lineItems),
		tpl.Frequency.String(),
		tpl.AmountExclTax,
		tpl.AmountInclTax,
		tpl.EmissionDay,
		months,
		tpl.NextEmission,
		tpl.LastEmission,
		tpl.Active,
		tpl.RepetitionLimit,
		tpl.RepetitionsDone,
	)
	if err != nil {
		r.logger.Error("Failed to create template", zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tpl.ID = id
	return nil
}

// GetByID retrieves one template.
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE id = ?`

	tpl, err := scanTemplate(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template %d: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get template by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

// ListByUser retrieves all templates of a user.
func (r *TemplateRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_templates WHERE user_id = ? ORDER BY id`
	return r.list(ctx, query, userID)
}

// ListDue retrieves the active templates whose next emission falls on or
// before the given day. The comparison is date-only.
func (r *TemplateRepository) ListDue(ctx context.Context, userID int64, day time.Time) ([]*entity.RecurringTemplate, error) {
	cutoff := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE user_id = ? AND active = 1 AND next_emission <= ?
		ORDER BY next_emission, id
	`
	return r.list(ctx, query, userID, cutoff)
}

func (r *TemplateRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.RecurringTemplate, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*entity.RecurringTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// CountByUser returns how many templates a user owns.
func (r *TemplateRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recurring_templates WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

// Advance records a generation with a compare-and-set on the previous
// next_emission value. A concurrent generation of the same occurrence
// matches zero rows and gets ErrConflict.
func (r *TemplateRepository) Advance(ctx context.Context, tpl *entity.RecurringTemplate, prevNextEmission time.Time) error {
	query := `
		UPDATE recurring_templates
		SET next_emission = ?, last_emission = ?, active = ?,
			repetitions_done = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND next_emission = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		tpl.NextEmission,
		tpl.LastEmission,
		tpl.Active,
		tpl.RepetitionsDone,
		tpl.ID,
		prevNextEmission,
	)
	if err != nil {
		r.logger.Error("Failed to advance template", zap.Int64("id", tpl.ID), zap.Error(err))
		return fmt.Errorf("failed to advance template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, tpl.ID); getErr != nil {
			return getErr
		}
		return entity.ErrConflict
	}
	return nil
}

// SetActive activates or retires a template.
func (r *TemplateRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE recurring_templates SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	if err != nil {
		return fmt.Errorf("failed to set template active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

// ListActiveUsers returns the users who own at least one active template.
func (r *TemplateRepository) ListActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT DISTINCT user_id FROM recurring_templates WHERE active = 1`)
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

func scanTemplate(row rowScanner) (*entity.RecurringTemplate, error) {
	var tpl entity.RecurringTemplate
	var frequency, lineItems, months string
	var lastEmission sql.NullTime

	err := row.Scan(
		&tpl.ID,
		&tpl.UserID,
		&tpl.ClientID,
		&lineItems,
		&frequency,
		&tpl.AmountExclTax,
		&tpl.AmountInclTax,
		&tpl.EmissionDay,
		&months,
		&tpl.NextEmission,
		&lastEmission,
		&tpl.Active,
		&tpl.RepetitionLimit,
		&tpl.RepetitionsDone,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.Frequency = entity.Frequency(frequency)
	if lastEmission.Valid {
		tpl.LastEmission = &lastEmission.Time
	}
	if lineItems != "" {
		if err := json.Unmarshal([]byte(lineItems), &tpl.LineItems); err != nil {
			return nil, fmt.Errorf("failed to decode line items: %w", err)
		}
	}
	emissionMonths, err := decodeMonths(months)
	if err != nil {
		return nil, err
	}
	tpl.EmissionMonths = emissionMonths
	return &tpl, nil
}

func encodeMonths(months []time.Month) (string, error) {
	if len(months) == 0 {
		return "[]", nil
	}
	raw := make([]int, len(months))
	for i, m := range months {
		raw[i] = int(m)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to encode emission months: %w", err)
	}
	return string(encoded), nil
}

func decodeMonths(encoded string) ([]time.Month, error) {
	if encoded == "" || encoded == "[]" {
		return nil, nil
	}
	var raw []int
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode emission months: %w", err)
	}
	months := make([]time.Month, len(raw))
	for i, m := range raw {
		months[i] = time.Month(m)
	}
	return months, nil
}

// Verify interface compliance
var _ port.TemplateRepository = (*TemplateRepository)(nil)
