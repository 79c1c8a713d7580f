package models

import "time"

// PendingAuthorization is a single-use record created when an authorization
// URL is handed out and consumed when the platform redirects back.
type PendingAuthorization struct {
	State        string    `db:"state" json:"state"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Platform     string    `db:"platform" json:"platform"`
	CodeVerifier string    `db:"code_verifier" json:"-"`
	Scopes       string    `db:"scopes" json:"scopes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

func (p *PendingAuthorization) Expired(at time.Time) bool {
	return at.After(p.ExpiresAt)
}
