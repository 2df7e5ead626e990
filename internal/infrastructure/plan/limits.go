// Package plan implements quota checks backed by static configuration.
// Every user shares the same limits; a billing integration would swap in a
// per-account implementation of the same port.
package plan

import (
	"context"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/application/service"
)

// Limits implements port.PlanLimitChecker from configured quotas.
type Limits struct {
	maxRecurringTemplates int
}

// NewLimits creates a checker. A zero quota means unlimited.
func NewLimits(maxRecurringTemplates int) *Limits {
	return &Limits{maxRecurringTemplates: maxRecurringTemplates}
}

// HasReachedPlanLimit reports whether creating one more resource would
// exceed the configured quota.
func (l *Limits) HasReachedPlanLimit(ctx context.Context, userID int64, resource string, currentCount int) (bool, error) {
	if resource == service.PlanResourceTemplates && l.maxRecurringTemplates > 0 {
		return currentCount >= l.maxRecurringTemplates, nil
	}
	return false, nil
}

// Verify interface compliance
var _ port.PlanLimitChecker = (*Limits)(nil)
