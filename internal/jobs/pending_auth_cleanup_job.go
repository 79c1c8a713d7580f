package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/repository"
)

// PendingAuthCleanupJob deletes authorization states that expired
// without ever being consumed.
type PendingAuthCleanupJob struct {
	pr repository.PendingAuthRepository
}

func NewPendingAuthCleanupJob(pr repository.PendingAuthRepository) *PendingAuthCleanupJob {
	return &PendingAuthCleanupJob{pr: pr}
}

func (c *PendingAuthCleanupJob) Cleanup() {
	ctx := context.Background()

	removed, err := c.pr.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if removed > 0 {
		slog.Info("expired authorization states removed", slog.Int64("count", removed))
	}
}
