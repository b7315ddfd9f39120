package auth

import (
	"net/mail"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/shoplist/internal/api"
)

// MinPasswordLength applies to new passwords (registration and reset).
// Login accepts whatever the account already has.
const MinPasswordLength = 8

// Policy validates user input before anything is sent to the backend.
type Policy struct {
	MinPasswordLength int
}

// DefaultPolicy returns the policy used by the CLI and the shell server.
func DefaultPolicy() Policy {
	return Policy{MinPasswordLength: MinPasswordLength}
}

// NormalizeEmail trims and NFC-normalizes an address and checks its syntax.
func (p Policy) NormalizeEmail(email string) (string, error) {
	email = norm.NFC.String(strings.TrimSpace(email))
	if email == "" {
		return "", api.Errorf(api.KindValidation, "validate email", "Email is required.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", api.Errorf(api.KindValidation, "validate email", "Enter a valid email address.")
	}
	return email, nil
}

// CheckLogin validates a login attempt and returns the normalized email.
func (p Policy) CheckLogin(email, password string) (string, error) {
	email, err := p.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(password) == "" {
		return "", api.Errorf(api.KindValidation, "validate password", "Password is required.")
	}
	return email, nil
}

// CheckNewPassword validates a password being set.
func (p Policy) CheckNewPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return api.Errorf(api.KindValidation, "validate password", "Password is required.")
	}
	if len([]rune(password)) < p.MinPasswordLength {
		return api.Errorf(api.KindValidation, "validate password",
			"Password must be at least %d characters.", p.MinPasswordLength)
	}
	return nil
}

// NormalizeCode strips whitespace from a one-time or backup code.
func NormalizeCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}
