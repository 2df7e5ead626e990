package ledger

import (
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/money"
)

// NextStatus derives the invoice status from the recomputed paid amount.
// It is a pure function of the rounded totals and the current status:
//
//	remaining == 0            -> Paid
//	paid > 0                  -> PartiallyPaid
//	was Paid/PartiallyPaid    -> Sent (payments were fully removed)
//	otherwise                 -> unchanged
//
// The last rule keeps the ledger from clobbering states it does not own,
// such as Pending or ToChase.
func NextStatus(current entity.InvoiceStatus, totalInclTax, amountPaid float64) entity.InvoiceStatus {
	remaining := money.Sum(totalInclTax, -amountPaid)

	switch {
	case money.Cmp(remaining, 0) == 0:
		return entity.StatusPaid
	case money.Cmp(amountPaid, 0) > 0:
		return entity.StatusPartiallyPaid
	case current.IsSettled():
		return entity.StatusSent
	default:
		return current
	}
}
