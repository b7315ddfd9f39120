package model

import "time"

type SessionStatus string

const (
	StatusAnonymous        SessionStatus = "anonymous"
	StatusPendingTwoFactor SessionStatus = "pendingTwoFactor"
	StatusAuthenticated    SessionStatus = "authenticated"
)

// Session is the client's view of its own authentication state.
// Token is set iff Status is authenticated; PendingEmail is set iff Status
// is pendingTwoFactor.
type Session struct {
	Status       SessionStatus `json:"status"`
	PendingEmail string        `json:"pending_email,omitempty"`
	Token        string        `json:"-"`
	Email        string        `json:"email,omitempty"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
}

// Valid reports whether the session satisfies its field invariants.
func (s Session) Valid() bool {
	switch s.Status {
	case StatusAnonymous:
		return s.Token == "" && s.PendingEmail == ""
	case StatusPendingTwoFactor:
		return s.Token == "" && s.PendingEmail != ""
	case StatusAuthenticated:
		return s.Token != "" && s.PendingEmail == ""
	}
	return false
}

// StoredCredential is the token persisted to durable client storage.
type StoredCredential struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"-"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the credential carried an expiry that has passed.
func (c StoredCredential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
