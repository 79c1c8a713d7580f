package models

import "time"

// Credential holds the OAuth tokens for one connected social account.
// Tokens are stored AES-GCM encrypted; only the credential store hands
// out decrypted copies.
type Credential struct {
	AccountID    int64     `db:"account_id" json:"account_id"`
	Platform     string    `db:"platform" json:"platform"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires before now+margin.
// A zero ExpiresAt means the platform issued a non-expiring token.
func (c *Credential) ExpiresWithin(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt.Add(-margin))
}

// Refreshable reports whether the credential carries a refresh token.
func (c *Credential) Refreshable() bool {
	return c.RefreshToken != ""
}
