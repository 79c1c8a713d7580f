// Package credentials owns the durable credential records and
// coordinates token refresh so no two callers refresh the same account
// concurrently.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/oauth"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/pkg/utils"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoCredential means the account has no stored credential; the
	// user must connect the account (again).
	ErrNoCredential = errors.New("no credential stored for account")

	// ErrReauthorizationRequired means the stored credential is dead
	// (invalid_grant or expired without a refresh token) and was
	// invalidated. Publishing for the account cannot proceed until the
	// user re-authorizes.
	ErrReauthorizationRequired = errors.New("credential invalid, re-authorization required")
)

// Refresher is the slice of the OAuth connector the store needs.
type Refresher interface {
	Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error)
}

type Store struct {
	repo      repository.CredentialRepository
	accounts  repository.SocialAccountRepository
	refresher Refresher
	secretKey []byte
	margin    time.Duration
	group     singleflight.Group
}

func NewStore(repo repository.CredentialRepository, accounts repository.SocialAccountRepository, refresher Refresher, secretKey []byte, margin time.Duration) *Store {
	return &Store{
		repo:      repo,
		accounts:  accounts,
		refresher: refresher,
		secretKey: secretKey,
		margin:    margin,
	}
}

// GetValid returns a decrypted credential whose access token is good for
// at least the refresh margin. An expiring credential is refreshed
// first; concurrent callers for the same account share one refresh call
// since refresh tokens are frequently single-use.
func (s *Store) GetValid(ctx context.Context, accountID int64) (*models.Credential, error) {
	cred, err := s.get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !cred.ExpiresWithin(s.margin) {
		return cred, nil
	}

	v, err, _ := s.group.Do(strconv.FormatInt(accountID, 10), func() (interface{}, error) {
		return s.refresh(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Credential), nil
}

func (s *Store) refresh(ctx context.Context, accountID int64) (*models.Credential, error) {
	// Re-read inside the flight: a refresh that completed while this
	// caller queued already produced a fresh token.
	cred, err := s.get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !cred.ExpiresWithin(s.margin) {
		return cred, nil
	}

	refreshed, err := s.refresher.Refresh(ctx, cred)
	if err != nil {
		if errors.Is(err, oauth.ErrNotRefreshable) || oauth.IsInvalidGrant(err) {
			if invErr := s.Invalidate(ctx, accountID); invErr != nil {
				slog.Info(invErr.Error())
			}
			return nil, fmt.Errorf("%w: %v", ErrReauthorizationRequired, err)
		}
		return nil, err
	}

	if err := s.Upsert(ctx, refreshed); err != nil {
		return nil, err
	}

	slog.Info("credential refreshed", "account_id", accountID, "platform", refreshed.Platform)
	return refreshed, nil
}

// Get returns the decrypted credential as stored, without triggering a
// refresh. Revocation wants the current token even when it is stale.
func (s *Store) Get(ctx context.Context, accountID int64) (*models.Credential, error) {
	return s.get(ctx, accountID)
}

// Upsert encrypts and atomically replaces the stored credential for the
// account.
func (s *Store) Upsert(ctx context.Context, cred *models.Credential) error {
	encrypted, err := s.encrypt(cred)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, encrypted)
}

// Invalidate removes the credential irrecoverably and flags the account
// as needing re-authorization.
func (s *Store) Invalidate(ctx context.Context, accountID int64) error {
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	if err := s.accounts.SetStatus(ctx, accountID, models.AccountStatusExpired, "re-authorization required"); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

func (s *Store) get(ctx context.Context, accountID int64) (*models.Credential, error) {
	stored, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoCredential
	}
	return s.decrypt(stored)
}

func (s *Store) encrypt(cred *models.Credential) (*models.Credential, error) {
	accessToken, err := utils.Encrypt([]byte(cred.AccessToken), s.secretKey)
	if err != nil {
		return nil, err
	}

	out := *cred
	out.AccessToken = accessToken

	if cred.RefreshToken != "" {
		refreshToken, err := utils.Encrypt([]byte(cred.RefreshToken), s.secretKey)
		if err != nil {
			return nil, err
		}
		out.RefreshToken = refreshToken
	}

	return &out, nil
}

func (s *Store) decrypt(cred *models.Credential) (*models.Credential, error) {
	accessToken, err := utils.Decrypt(cred.AccessToken, s.secretKey)
	if err != nil {
		return nil, err
	}

	out := *cred
	out.AccessToken = accessToken

	if cred.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(cred.RefreshToken, s.secretKey)
		if err != nil {
			return nil, err
		}
		out.RefreshToken = refreshToken
	}

	return &out, nil
}
