package model

import "time"

type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	EmailVerified bool      `json:"email_verified"`
	Rank          string    `json:"rank"`
	TwoFactor     bool      `json:"two_factor"`
	CreatedAt     time.Time `json:"created_at"`
}

type Notification struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Read   bool   `json:"read"`
}

// BackupCodes is the account's set of single-use recovery codes.
type BackupCodes struct {
	Has   bool     `json:"has"`
	Codes []string `json:"codes"`
}
