package entity

import "time"

// Frequency represents how often a recurring template emits an invoice.
type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
)

var validFrequencies = map[Frequency]bool{
	FrequencyMonthly:    true,
	FrequencyQuarterly:  true,
	FrequencySemiannual: true,
	FrequencyAnnual:     true,
}

// IsValid returns true if the frequency is recognized.
func (f Frequency) IsValid() bool {
	return validFrequencies[f]
}

// String returns the string representation of the frequency.
func (f Frequency) String() string {
	return string(f)
}

// DefaultEmissionMonths returns the months used when a template does not
// configure its own. Monthly templates emit every month and need none.
func (f Frequency) DefaultEmissionMonths() []time.Month {
	switch f {
	case FrequencyQuarterly:
		return []time.Month{time.January, time.April, time.July, time.October}
	case FrequencySemiannual:
		return []time.Month{time.January, time.July}
	case FrequencyAnnual:
		return []time.Month{time.January}
	default:
		return nil
	}
}

// RecurringTemplate is a blueprint that periodically materializes a concrete
// invoice. The stored totals are authoritative: generation copies them
// verbatim and never recomputes from line items.
type RecurringTemplate struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"user_id"`
	ClientID       int64        `json:"client_id"`
	LineItems      []LineItem   `json:"line_items"`
	Frequency      Frequency    `json:"frequency"`
	AmountExclTax  float64      `json:"amount_excl_tax"`
	AmountInclTax  float64      `json:"amount_incl_tax"`
	EmissionDay    int          `json:"emission_day"`
	EmissionMonths []time.Month `json:"emission_months,omitempty"`
	NextEmission   time.Time    `json:"next_emission"`
	LastEmission   *time.Time   `json:"last_emission,omitempty"`
	Active         bool         `json:"active"`

	// RepetitionLimit of zero means unlimited.
	RepetitionLimit int `json:"repetition_limit,omitempty"`
	RepetitionsDone int `json:"repetitions_done"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LimitReached returns true once the configured repetition limit is met.
func (t *RecurringTemplate) LimitReached() bool {
	return t.RepetitionLimit > 0 && t.RepetitionsDone >= t.RepetitionLimit
}
