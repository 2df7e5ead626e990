package paymentterm

import (
	"time"

	"go.uber.org/zap"
)

// rule describes how a due date is derived from a creation date.
// Exactly one family applies:
//   - offsetDays alone: fixed calendar-day offset (zero means at receipt)
//   - endOfMonth: offset, then roll back to the month boundary
//   - endOfMonth + dayOfMonth: offset, month boundary, then the given day
//     in the following month, clamped to that month's last valid day
type rule struct {
	offsetDays int
	endOfMonth bool
	dayOfMonth int
}

var rules = map[Term]rule{
	AtReceipt:             {},
	Days8:                 {offsetDays: 8},
	Days30:                {offsetDays: 30},
	Days60:                {offsetDays: 60},
	Days30Net:             {offsetDays: 30},
	Days45EndOfMonth:      {offsetDays: 45, endOfMonth: true},
	Days30EndOfMonthDay10: {offsetDays: 30, endOfMonth: true, dayOfMonth: 10},
	Days60EndOfMonthDay10: {offsetDays: 60, endOfMonth: true, dayOfMonth: 10},
	Days30EndOfMonthDay15: {offsetDays: 30, endOfMonth: true, dayOfMonth: 15},
	Days60EndOfMonthDay15: {offsetDays: 60, endOfMonth: true, dayOfMonth: 15},
}

// fallbackRule is applied when an unrecognized term value reaches the
// calculator (legacy rows that predate edge validation). The fallback is
// logged as a degraded-input event, never applied silently.
var fallbackRule = rule{offsetDays: 30}

// Calculator derives due dates from payment terms. It holds no state
// beyond the logger used to flag degraded input.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator creates a Calculator.
func NewCalculator(logger *zap.Logger) *Calculator {
	return &Calculator{logger: logger}
}

// DueDate returns the contractual due date for an invoice created on
// creationDate under the given term. The creation date is normalized to
// midnight UTC before any arithmetic; time-of-day never influences a due
// date.
func (c *Calculator) DueDate(creationDate time.Time, term Term) time.Time {
	r, ok := rules[term]
	if !ok {
		c.logger.Warn("Unrecognized payment term, falling back to 30-day rule",
			zap.String("payment_term", string(term)))
		r = fallbackRule
	}
	return r.dueDate(normalize(creationDate))
}

// normalize truncates a date to midnight UTC.
func normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// dueDate applies the rule to a normalized creation date.
func (r rule) dueDate(creation time.Time) time.Time {
	if !r.endOfMonth {
		return creation.AddDate(0, 0, r.offsetDays)
	}

	// Advance by the offset in whole months, then move to day 0 of the
	// following month. Day 0 normalizes to the month's last day, which is
	// correct regardless of month length or leap years.
	months := time.Month(r.offsetDays / 30)
	monthEnd := time.Date(creation.Year(), creation.Month()+months+1, 0, 0, 0, 0, 0, time.UTC)

	if r.dayOfMonth == 0 {
		return monthEnd
	}
	return dayOfFollowingMonth(monthEnd, r.dayOfMonth)
}

// dayOfFollowingMonth returns the requested day in the month after d,
// clamped to that month's last valid day when the day does not exist
// (the 31st in February, for instance).
func dayOfFollowingMonth(d time.Time, day int) time.Time {
	lastDay := time.Date(d.Year(), d.Month()+2, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(d.Year(), d.Month()+1, day, 0, 0, 0, 0, time.UTC)
}
