package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/credentials"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/oauth"
	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/repository"
)

type PlatformService interface {
	ListPlatforms(ctx context.Context) []platforms.Platform
	GetAuthURL(ctx context.Context, platform string, userID int64, scopes []string) (*oauth.AuthorizationRequest, error)
	HandleCallback(ctx context.Context, platform, code, state string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	registry  *platforms.Registry
	connector *oauth.Connector
	store     *credentials.Store
	sa        repository.SocialAccountRepository
}

func NewPlatformService(
	registry *platforms.Registry,
	connector *oauth.Connector,
	store *credentials.Store,
	sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		registry:  registry,
		connector: connector,
		store:     store,
		sa:        sa,
	}
}

func (s *platformService) ListPlatforms(ctx context.Context) []platforms.Platform {
	return s.registry.List()
}

func (s *platformService) GetAuthURL(ctx context.Context, platform string, userID int64, scopes []string) (*oauth.AuthorizationRequest, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	return s.connector.BeginAuthorization(ctx, platform, userID, scopes)
}

// HandleCallback finishes the authorization flow: it exchanges the code,
// resolves the platform identity behind the tokens and binds both to a
// social account. Reconnecting an account the user already linked
// replaces its credential instead of creating a duplicate.
func (s *platformService) HandleCallback(ctx context.Context, platform, code, state string) (int64, error) {
	grant, err := s.connector.CompleteAuthorization(ctx, platform, code, state)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	identity, err := s.connector.FetchIdentity(platform, grant.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("unable to fetch account identity")
	}

	account, err := s.sa.GetByExternalID(ctx, grant.UserID, platform, identity.ExternalID)
	if err != nil {
		return 0, err
	}

	var accountID int64
	if account == nil {
		accountID, err = s.sa.Create(ctx, nil, &models.SocialAccount{
			UserID:          grant.UserID,
			Platform:        platform,
			ExternalID:      identity.ExternalID,
			AccountName:     identity.Username,
			AccountUsername: identity.Username,
			ProfilePicture:  identity.AvatarURL,
			Status:          models.AccountStatusConnected,
		})
		if err != nil {
			return 0, fmt.Errorf("error saving social account")
		}
	} else {
		accountID = account.ID
		if err := s.sa.SetStatus(ctx, accountID, models.AccountStatusConnected, ""); err != nil {
			return 0, err
		}
	}

	err = s.store.Upsert(ctx, &models.Credential{
		AccountID:    accountID,
		Platform:     platform,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		return 0, err
	}

	return grant.UserID, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts")
	}

	return accounts, nil
}

// Delete disconnects a social account: best-effort revocation at the
// platform, then removal of the stored credential and the account row.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 || accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return err
	}

	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("unable to get social account info")
	}

	cred, err := s.store.Get(ctx, accountID)
	if err == nil && cred != nil {
		if err := s.connector.Revoke(ctx, account.Platform, account.ExternalID, cred.AccessToken); err != nil {
			slog.Info(err.Error())
		}
	}

	if err := s.store.Invalidate(ctx, accountID); err != nil {
		slog.Info(err.Error())
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing account info")
	}

	return nil
}
