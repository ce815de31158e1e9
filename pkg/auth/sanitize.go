package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/simple-org-slim/pkg/domain"
)

// MaxOrganizationNameLength bounds organization display names.
const MaxOrganizationNameLength = 100

// SanitizeName trims an organization name and strips control characters.
// Whitespace controls such as tab and newline are kept so that they still
// separate words when the name is normalized.
func SanitizeName(name string) string {
	return strings.TrimFunc(removeControlChars(name), domain.IsNameSpace)
}

// ValidateStringLength validates that a string is within the specified length
// constraints, counted in characters. Failures match domain.ErrValidation.
func ValidateStringLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if min > 0 && length < min {
		return domain.NewValidationError("%s must be at least %d characters long", field, min)
	}

	if max > 0 && length > max {
		return domain.NewValidationError("%s must be at most %d characters long", field, max)
	}

	return nil
}

// removeControlChars removes control characters that are not name separators.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !domain.IsNameSpace(r) {
			return -1
		}
		return r
	}, s)
}
