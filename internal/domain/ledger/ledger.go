// Package ledger holds the pure payment-ledger transformations for a single
// invoice: appending and removing payments, recomputing the derived paid and
// remaining amounts, and driving the status state machine. Persistence and
// concurrency control live in the application layer.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/money"
)

const (
	maxPaymentAge    = 10 * 365 * 24 * time.Hour
	maxPaymentFuture = 365 * 24 * time.Hour
)

// Add validates a payment against the invoice's current ledger state,
// assigns it a fresh id, appends it and recomputes the derived amounts and
// status. The invoice is mutated in place; on error it is left untouched.
func Add(inv *entity.Invoice, payment entity.Payment, now time.Time) (*entity.Payment, error) {
	amount := money.Round(payment.Amount)

	if money.Cmp(amount, 0) <= 0 {
		return nil, entity.NewValidationError("amount", "payment amount must be positive")
	}
	if !payment.Method.IsValid() {
		return nil, entity.NewValidationError("method", fmt.Sprintf("unknown payment method %q", payment.Method))
	}
	if payment.PaymentDate.Before(now.Add(-maxPaymentAge)) {
		return nil, entity.NewValidationError("payment_date", "payment date more than 10 years in the past")
	}
	if payment.PaymentDate.After(now.Add(maxPaymentFuture)) {
		return nil, entity.NewValidationError("payment_date", "payment date more than 1 year in the future")
	}

	remaining := money.Sum(inv.TotalInclTax, -money.Sum(paymentAmounts(inv)...))
	if money.Cmp(amount, remaining) > 0 {
		return nil, entity.NewValidationError("amount",
			fmt.Sprintf("payment of %.2f exceeds remaining balance of %.2f", amount, remaining))
	}

	// Anti-double-submit guard: an identical amount on the same calendar day
	// with the same method is treated as a duplicate. A genuine second
	// payment must differ in date, method or reference.
	for i := range inv.Payments {
		existing := &inv.Payments[i]
		if money.Equal(existing.Amount, amount) &&
			sameCalendarDay(existing.PaymentDate, payment.PaymentDate) &&
			existing.Method == payment.Method &&
			existing.Reference == payment.Reference {
			return nil, entity.NewValidationError("payment", "duplicate payment (same amount, date and method)")
		}
	}

	payment.ID = uuid.NewString()
	payment.Amount = amount
	payment.CreatedAt = now

	inv.Payments = append(inv.Payments, payment)
	recompute(inv)

	return &inv.Payments[len(inv.Payments)-1], nil
}

// Remove deletes the payment with the given id and recomputes the derived
// amounts and status. Returns ErrNotFound when the id is absent.
func Remove(inv *entity.Invoice, paymentID string) error {
	idx := -1
	for i := range inv.Payments {
		if inv.Payments[i].ID == paymentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("payment %s: %w", paymentID, entity.ErrNotFound)
	}

	inv.Payments = append(inv.Payments[:idx], inv.Payments[idx+1:]...)
	recompute(inv)

	return nil
}

// recompute refreshes amountPaid, amountRemaining and status from the
// payment list. Invariant: paid + remaining == totalInclTax to the cent.
func recompute(inv *entity.Invoice) {
	paid := money.Sum(paymentAmounts(inv)...)
	inv.AmountPaid = paid
	inv.AmountRemaining = money.Sum(inv.TotalInclTax, -paid)
	inv.Status = NextStatus(inv.Status, inv.TotalInclTax, paid)
}

func paymentAmounts(inv *entity.Invoice) []float64 {
	amounts := make([]float64, len(inv.Payments))
	for i := range inv.Payments {
		amounts[i] = inv.Payments[i].Amount
	}
	return amounts
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
