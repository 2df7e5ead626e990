package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	vatRegex   = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{2,12}$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateVATNumber validates an EU VAT number: a two-letter country code
// followed by 2 to 12 alphanumerics. Spaces are tolerated and stripped.
func ValidateVATNumber(vat string) error {
	compact := strings.ToUpper(strings.ReplaceAll(vat, " ", ""))
	if !vatRegex.MatchString(compact) {
		return fmt.Errorf("invalid VAT number format: %s", vat)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
