// Package schedule computes emission dates for recurring invoice templates.
package schedule

import (
	"sort"
	"time"

	"github.com/facturio/facturio/internal/domain/entity"
)

// Next returns the next emission date after the reference date for the
// given frequency, emission day and configured months. The reference date's
// own day never qualifies: an occurrence consumed today must yield a later
// one. Days beyond the target month's length clamp to its last valid day.
func Next(freq entity.Frequency, emissionDay int, months []time.Month, ref time.Time) time.Time {
	year, month, day := ref.Date()

	if freq == entity.FrequencyMonthly {
		// Compare against the clamped day: emission day 31 falls due on
		// April 30, so a reference of April 30 must roll to May.
		target := emissionDay
		if last := lastDayOf(year, month, ref.Location()); target > last {
			target = last
		}
		if day >= target {
			month++
		}
		return onDay(year, month, emissionDay, ref.Location())
	}

	if len(months) == 0 {
		months = freq.DefaultEmissionMonths()
	}
	sorted := make([]time.Month, len(months))
	copy(sorted, months)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, m := range sorted {
		if m > month {
			return onDay(year, m, emissionDay, ref.Location())
		}
	}
	// No configured month remains this year; roll to the first one next year.
	return onDay(year+1, sorted[0], emissionDay, ref.Location())
}

// onDay builds a date on the requested day of month, clamping to the last
// valid day when the month is shorter.
func onDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := lastDayOf(year, month, loc); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func lastDayOf(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
