package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/credentials"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

// TokenRefreshJob proactively refreshes credentials that expire in the
// near future, so publish attempts rarely pay the refresh latency
// themselves. Refresh exclusivity lives in the credential store, so
// running this concurrently with on-demand refreshes is safe.
type TokenRefreshJob struct {
	cr     repository.CredentialRepository
	store  *credentials.Store
	window time.Duration
}

func NewTokenRefreshJob(cr repository.CredentialRepository, store *credentials.Store, window time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{cr: cr, store: store, window: window}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now().UTC()
	creds, err := c.cr.ListExpiring(ctx, currentTime, currentTime.Add(c.window))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, cred := range creds {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(cred *models.Credential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.store.GetValid(ctx, cred.AccountID); err != nil {
				slog.Info("unable to refresh token",
					slog.Int64("account_id", cred.AccountID),
					slog.String("platform", cred.Platform),
					slog.String("error", err.Error()))
			}
		}(cred)
	}

	wg.Wait()
}
