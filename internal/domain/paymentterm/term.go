// Package paymentterm computes contractual due dates from payment-term
// rules. Term parsing happens at the system edge; the calculator itself is
// pure calendar arithmetic.
package paymentterm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTerm reports a term string outside the closed enumeration and
// its known legacy synonyms. Callers at the system edge wrap it into their
// own validation error type.
var ErrUnknownTerm = errors.New("unrecognized payment term")

// Term is the closed enumeration of supported payment terms.
type Term string

const (
	AtReceipt             Term = "AT_RECEIPT"
	Days8                 Term = "DAYS_8"
	Days30                Term = "DAYS_30"
	Days60                Term = "DAYS_60"
	Days30Net             Term = "DAYS_30_NET"
	Days45EndOfMonth      Term = "DAYS_45_END_OF_MONTH"
	Days30EndOfMonthDay10 Term = "DAYS_30_END_OF_MONTH_DAY_10"
	Days60EndOfMonthDay10 Term = "DAYS_60_END_OF_MONTH_DAY_10"
	Days30EndOfMonthDay15 Term = "DAYS_30_END_OF_MONTH_DAY_15"
	Days60EndOfMonthDay15 Term = "DAYS_60_END_OF_MONTH_DAY_15"
)

var validTerms = map[Term]bool{
	AtReceipt:             true,
	Days8:                 true,
	Days30:                true,
	Days60:                true,
	Days30Net:             true,
	Days45EndOfMonth:      true,
	Days30EndOfMonthDay10: true,
	Days60EndOfMonthDay10: true,
	Days30EndOfMonthDay15: true,
	Days60EndOfMonthDay15: true,
}

// IsValid returns true if the term is a recognized enumeration value.
func (t Term) IsValid() bool {
	return validTerms[t]
}

// String returns the string representation of the term.
func (t Term) String() string {
	return string(t)
}

// legacySynonyms maps term strings found in imported legacy data onto the
// closed enumeration. Keys are lowercased.
var legacySynonyms = map[string]Term{
	"comptant":                     AtReceipt,
	"a reception":                  AtReceipt,
	"à réception":                  AtReceipt,
	"reception":                    AtReceipt,
	"8j":                           Days8,
	"8 jours":                      Days8,
	"30j":                          Days30,
	"30 jours":                     Days30,
	"60j":                          Days60,
	"60 jours":                     Days60,
	"30 jours net":                 Days30Net,
	"45 jours fin de mois":         Days45EndOfMonth,
	"30 jours fin de mois le 10":   Days30EndOfMonthDay10,
	"60 jours fin de mois le 10":   Days60EndOfMonthDay10,
	"30 jours fin de mois le 15":   Days30EndOfMonthDay15,
	"60 jours fin de mois le 15":   Days60EndOfMonthDay15,
}

// Parse resolves a raw term string into the closed enumeration. Canonical
// values and known legacy synonyms are accepted; anything else is rejected
// so unrecognized strings never reach the calculator through this path.
func Parse(raw string) (Term, error) {
	trimmed := strings.TrimSpace(raw)
	if t := Term(strings.ToUpper(trimmed)); t.IsValid() {
		return t, nil
	}
	if t, ok := legacySynonyms[strings.ToLower(trimmed)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTerm, raw)
}
