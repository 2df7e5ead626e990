package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/facturio/facturio/internal/domain/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext_Monthly(t *testing.T) {
	tests := []struct {
		name        string
		ref         time.Time
		emissionDay int
		expected    time.Time
	}{
		{"target day still ahead this month", date(2024, time.March, 3), 15, date(2024, time.March, 15)},
		{"target day already passed", date(2024, time.March, 20), 15, date(2024, time.April, 15)},
		{"emission day is today rolls to next month", date(2024, time.March, 15), 15, date(2024, time.April, 15)},
		{"december rolls to january", date(2024, time.December, 20), 15, date(2025, time.January, 15)},
		{"day 31 clamps in short months", date(2024, time.April, 5), 31, date(2024, time.April, 30)},
		{"day 31 clamps to leap february", date(2024, time.February, 5), 31, date(2024, time.February, 29)},
		{"reference on clamped day rolls to next month", date(2024, time.April, 30), 31, date(2024, time.May, 31)},
		{"reference on leap february clamped day", date(2024, time.February, 29), 31, date(2024, time.March, 31)},
		{"reference past clamped day rolls", date(2023, time.February, 28), 30, date(2023, time.March, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(entity.FrequencyMonthly, tt.emissionDay, nil, tt.ref)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// A consumed occurrence must always yield a strictly later one, even when
// the reference sits on a month's clamped last day. Anything else makes a
// due scan re-emit the same occurrence all day.
func TestNext_StrictlyAfterReference(t *testing.T) {
	freqs := []entity.Frequency{
		entity.FrequencyMonthly,
		entity.FrequencyQuarterly,
		entity.FrequencySemiannual,
		entity.FrequencyAnnual,
	}

	for _, freq := range freqs {
		for emissionDay := 28; emissionDay <= 31; emissionDay++ {
			ref := date(2024, time.January, emissionDay)
			for i := 0; i < 24; i++ {
				next := Next(freq, emissionDay, nil, ref)
				assert.True(t, next.After(ref),
					"%s day %d: next %s not after reference %s",
					freq, emissionDay, next.Format("2006-01-02"), ref.Format("2006-01-02"))
				ref = next
			}
		}
	}
}

func TestNext_Quarterly(t *testing.T) {
	tests := []struct {
		name        string
		ref         time.Time
		emissionDay int
		months      []time.Month
		expected    time.Time
	}{
		{"default months pick next quarter", date(2024, time.February, 10), 5, nil, date(2024, time.April, 5)},
		{"current month never qualifies", date(2024, time.April, 1), 5, nil, date(2024, time.July, 5)},
		{"rolls to next year after last quarter", date(2024, time.November, 10), 5, nil, date(2025, time.January, 5)},
		{"explicit months honored", date(2024, time.March, 10), 5, []time.Month{time.March, time.June, time.September, time.December}, date(2024, time.June, 5)},
		{"unsorted explicit months", date(2024, time.January, 10), 5, []time.Month{time.December, time.May, time.August}, date(2024, time.May, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(entity.FrequencyQuarterly, tt.emissionDay, tt.months, tt.ref)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNext_Semiannual(t *testing.T) {
	// Default months are January and July.
	assert.Equal(t, date(2024, time.July, 1),
		Next(entity.FrequencySemiannual, 1, nil, date(2024, time.January, 15)))
	assert.Equal(t, date(2025, time.January, 1),
		Next(entity.FrequencySemiannual, 1, nil, date(2024, time.August, 2)))
}

func TestNext_Annual(t *testing.T) {
	// Default month is January, so any reference rolls to next year.
	assert.Equal(t, date(2025, time.January, 10),
		Next(entity.FrequencyAnnual, 10, nil, date(2024, time.January, 5)))
	assert.Equal(t, date(2025, time.February, 28),
		Next(entity.FrequencyAnnual, 31, []time.Month{time.February}, date(2024, time.March, 1)))
}
