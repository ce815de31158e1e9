package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/simple-org-slim/pkg/domain"
)

// Common disposable email domains to block (can be extended)
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
}

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an admin email address for format and length.
// Failures match domain.ErrValidation.
func ValidateEmail(email string, strict bool, blockDisposable bool) error {
	if strings.TrimSpace(email) == "" {
		return domain.NewValidationError("email address is required")
	}

	// Check length
	if len(email) > maxEmailLength {
		return domain.NewValidationError("email address is too long (max %d characters)", maxEmailLength)
	}

	// Normalize for validation
	normalized := NormalizeEmail(email)

	// A display name ("Admin <a@b.c>") is not an address
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return domain.NewValidationError("invalid email address format")
	}

	// Apply stricter validation if requested
	if strict {
		if !emailRegex.MatchString(addr.Address) {
			return domain.NewValidationError("invalid email address format")
		}
	}

	// Check for disposable email domains if requested
	if blockDisposable {
		host := getDomain(addr.Address)
		if disposableDomains[strings.ToLower(host)] {
			return domain.NewValidationError("disposable email addresses are not allowed")
		}
	}

	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// getDomain extracts the domain from an email address.
func getDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
