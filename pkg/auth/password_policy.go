package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// PasswordPolicy defines complexity requirements for admin passwords, applied
// when an organization is created and when its admin changes password. The
// zero value and a nil policy accept any password.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from the PASSWORD_* settings.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

// PasswordPolicyError lists every requirement a password failed. It matches
// domain.ErrValidation.
type PasswordPolicyError struct {
	Unmet []string
}

func (e *PasswordPolicyError) Error() string {
	return "password must contain " + strings.Join(e.Unmet, ", ")
}

func (e *PasswordPolicyError) Unwrap() error { return domain.ErrValidation }

type passwordRule struct {
	requirement string
	satisfied   func(password string) bool
}

func (p *PasswordPolicy) rules() []passwordRule {
	if p == nil {
		return nil
	}

	var rules []passwordRule
	if p.MinLength > 0 {
		min := p.MinLength
		rules = append(rules, passwordRule{
			requirement: fmt.Sprintf("at least %d characters", min),
			satisfied:   func(s string) bool { return utf8.RuneCountInString(s) >= min },
		})
	}
	if p.RequireUppercase {
		rules = append(rules, passwordRule{"one uppercase letter", containsAny(unicode.IsUpper)})
	}
	if p.RequireLowercase {
		rules = append(rules, passwordRule{"one lowercase letter", containsAny(unicode.IsLower)})
	}
	if p.RequireNumber {
		rules = append(rules, passwordRule{"one number", containsAny(unicode.IsDigit)})
	}
	if p.RequireSpecial {
		rules = append(rules, passwordRule{"one special character", containsAny(isSpecial)})
	}
	return rules
}

// ValidatePassword returns a *PasswordPolicyError naming every unmet
// requirement, or nil.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	var unmet []string
	for _, rule := range p.rules() {
		if !rule.satisfied(password) {
			unmet = append(unmet, rule.requirement)
		}
	}
	if len(unmet) > 0 {
		return &PasswordPolicyError{Unmet: unmet}
	}
	return nil
}

// Requirements describes the configured requirements in check order.
func (p *PasswordPolicy) Requirements() []string {
	rules := p.rules()
	out := make([]string, 0, len(rules))
	for _, rule := range rules {
		out = append(out, rule.requirement)
	}
	return out
}

// HasRequirements returns true if the policy rejects any password.
func (p *PasswordPolicy) HasRequirements() bool {
	return len(p.rules()) > 0
}

func containsAny(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		return strings.IndexFunc(s, pred) >= 0
	}
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
