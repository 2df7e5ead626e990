package port

import (
	"context"
	"time"
)

// TransactionManager groups repository writes into one atomic unit.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PlanLimitChecker is the plan/quota capability check consumed before
// creating new recurring templates. Quota internals live outside this
// engine.
type PlanLimitChecker interface {
	HasReachedPlanLimit(ctx context.Context, userID int64, resource string, currentCount int) (bool, error)
}

// Clock supplies the current time. Services take it as a dependency so
// date-sensitive logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
