package auth

import (
	"strconv"
	"strings"
)

const passwordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// PasswordPolicy is the configurable strength policy enforced on sign-up and
// password change. Rules are checked in a fixed order (length, uppercase,
// lowercase, digits, symbols) so a given non-conforming password always
// produces the same error message.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool
}

// DefaultPasswordPolicy requires eight characters with one of each class.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSymbol:    true,
	}
}

// Validate returns a WeakPassword error naming the first unmet rule, or nil.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return newError(CodeWeakPassword, "password must be at least "+strconv.Itoa(p.MinLength)+" characters")
	}
	if p.RequireUppercase && !strings.ContainsFunc(password, isUpper) {
		return newError(CodeWeakPassword, "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !strings.ContainsFunc(password, isLower) {
		return newError(CodeWeakPassword, "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !strings.ContainsFunc(password, isDigit) {
		return newError(CodeWeakPassword, "password must contain at least one number")
	}
	if p.RequireSymbol && !strings.ContainsAny(password, passwordSymbols) {
		return newError(CodeWeakPassword, "password must contain at least one special character")
	}
	return nil
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
