// Package money centralizes monetary rounding so that no caller ever
// compares raw floating sums. All amounts are rounded half-up to cents
// before storage or comparison.
package money

import "github.com/shopspring/decimal"

// Round rounds an amount half-up to two decimal places.
func Round(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// Sum adds amounts and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	f, _ := roundHalfUp(total).Float64()
	return f
}

// Cmp compares two amounts after cent rounding. It returns -1, 0 or 1.
func Cmp(a, b float64) int {
	return roundHalfUp(decimal.NewFromFloat(a)).Cmp(roundHalfUp(decimal.NewFromFloat(b)))
}

// Equal reports whether two amounts agree to the cent.
func Equal(a, b float64) bool {
	return Cmp(a, b) == 0
}

func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
