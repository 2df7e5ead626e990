package paymentterm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculator_DueDate(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	tests := []struct {
		name     string
		creation time.Time
		term     Term
		expected time.Time
	}{
		{
			name:     "at receipt equals creation date",
			creation: date(2024, time.March, 15),
			term:     AtReceipt,
			expected: date(2024, time.March, 15),
		},
		{
			name:     "8 days fixed offset",
			creation: date(2024, time.March, 15),
			term:     Days8,
			expected: date(2024, time.March, 23),
		},
		{
			name:     "30 days fixed offset",
			creation: date(2024, time.January, 1),
			term:     Days30,
			expected: date(2024, time.January, 31),
		},
		{
			name:     "30 days net behaves like 30 days",
			creation: date(2024, time.January, 1),
			term:     Days30Net,
			expected: date(2024, time.January, 31),
		},
		{
			name:     "60 days crossing a year boundary",
			creation: date(2023, time.December, 15),
			term:     Days60,
			expected: date(2024, time.February, 13),
		},
		{
			name:     "45 days end of month",
			creation: date(2024, time.January, 15),
			term:     Days45EndOfMonth,
			expected: date(2024, time.February, 29),
		},
		{
			name:     "45 days end of month in a non-leap year",
			creation: date(2023, time.January, 15),
			term:     Days45EndOfMonth,
			expected: date(2023, time.February, 28),
		},
		{
			name:     "30 days end of month then the 10th over leap February",
			creation: date(2024, time.January, 31),
			term:     Days30EndOfMonthDay10,
			expected: date(2024, time.March, 10),
		},
		{
			name:     "60 days end of month then the 10th",
			creation: date(2024, time.January, 31),
			term:     Days60EndOfMonthDay10,
			expected: date(2024, time.April, 10),
		},
		{
			name:     "30 days end of month then the 15th",
			creation: date(2024, time.March, 20),
			term:     Days30EndOfMonthDay15,
			expected: date(2024, time.May, 15),
		},
		{
			name:     "time of day never shifts the due date",
			creation: time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC),
			term:     Days30,
			expected: date(2024, time.January, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DueDate(tt.creation, tt.term)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalculator_DueDate_NeverBeforeCreation(t *testing.T) {
	calc := NewCalculator(zap.NewNop())

	terms := []Term{
		AtReceipt, Days8, Days30, Days60, Days30Net,
		Days45EndOfMonth,
		Days30EndOfMonthDay10, Days60EndOfMonthDay10,
		Days30EndOfMonthDay15, Days60EndOfMonthDay15,
	}

	// Sweep two full years day by day, covering a leap year.
	for d := date(2023, time.January, 1); d.Year() < 2025; d = d.AddDate(0, 0, 1) {
		for _, term := range terms {
			due := calc.DueDate(d, term)
			if term == AtReceipt {
				assert.Equal(t, d, due, "at receipt on %s", d.Format("2006-01-02"))
				continue
			}
			assert.False(t, due.Before(d),
				"due date %s before creation %s for term %s",
				due.Format("2006-01-02"), d.Format("2006-01-02"), term)
		}
	}
}

func TestRule_DayOfMonthClamped(t *testing.T) {
	// A target day that does not exist in the target month clamps to the
	// last valid day instead of overflowing into the following month.
	r := rule{offsetDays: 60, endOfMonth: true, dayOfMonth: 31}

	got := r.dueDate(date(2024, time.November, 5))
	// Two months ahead rolls to the end of January 2025; day 31 of the
	// following February does not exist, so the date clamps to 2025-02-28.
	assert.Equal(t, date(2025, time.February, 28), got)
}

func TestCalculator_DueDate_UnknownTermFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calc := NewCalculator(zap.New(core))

	creation := date(2024, time.June, 1)
	got := calc.DueDate(creation, Term("NET_90"))

	assert.Equal(t, creation.AddDate(0, 0, 30), got, "fallback is the 30-day rule")
	assert.Equal(t, 1, logs.Len(), "fallback must be logged as degraded input")
	assert.Contains(t, logs.All()[0].Message, "Unrecognized payment term")
}
