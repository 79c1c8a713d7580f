package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState means the callback state is unknown, expired, or
	// already consumed. The callback must be rejected, never retried.
	ErrInvalidState = errors.New("invalid or expired authorization state")

	// ErrPlatformMismatch means the state was issued for a different platform.
	ErrPlatformMismatch = errors.New("authorization state issued for another platform")

	// ErrNotRefreshable means the credential has no refresh token.
	ErrNotRefreshable = errors.New("credential has no refresh token")
)

// ExchangeError is returned when the token endpoint rejects an
// authorization-code exchange. The code was already consumed by the
// platform, so the exchange must not be retried.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed (status %d): %s", e.StatusCode, e.Body)
}

// RefreshError is returned when a refresh-token grant fails. An
// invalid_grant code means the credential is dead and the account must
// be re-authorized; anything else is treated as transient.
type RefreshError struct {
	Code        string
	Description string
	StatusCode  int
	Err         error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed (status %d): %s %s", e.StatusCode, e.Code, e.Description)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// InvalidGrant reports whether the platform revoked or rotated away the
// refresh token.
func (e *RefreshError) InvalidGrant() bool {
	return e.Code == "invalid_grant"
}

// IsInvalidGrant reports whether err is a RefreshError carrying invalid_grant.
func IsInvalidGrant(err error) bool {
	var re *RefreshError
	return errors.As(err, &re) && re.InvalidGrant()
}
