// Package engine schedules publish requests and executes publish
// attempts. A single scheduler owns the ordering structure; a pool of
// workers executes attempts concurrently for different requests.
package engine

import (
	"context"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// Config tunes the scheduler and the retry policy.
type Config struct {
	// Workers is the size of the in-process worker pool.
	Workers int
	// MaxAttempts caps how many times a request is dispatched before it
	// fails terminally.
	MaxAttempts int
	// BaseBackoff is the delay after the first transient failure; it
	// doubles per attempt up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// JitterFraction randomizes each backoff by +/- this fraction.
	JitterFraction float64
	// GraceWindow is how far in the past a scheduled time may lie and
	// still be accepted at submission.
	GraceWindow time.Duration
	// CallTimeout bounds every outbound upload call.
	CallTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:        10,
		MaxAttempts:    5,
		BaseBackoff:    30 * time.Second,
		MaxBackoff:     15 * time.Minute,
		JitterFraction: 0.2,
		GraceWindow:    5 * time.Minute,
		CallTimeout:    2 * time.Minute,
	}
}

// Dispatcher hands a due request to whatever executes attempts: the
// in-process worker pool, or a task queue in distributed mode.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *models.PublishRequest) error
}

// CredentialSource is the slice of the credential store the worker needs.
type CredentialSource interface {
	GetValid(ctx context.Context, accountID int64) (*models.Credential, error)
}

// MediaResolver turns a media reference into a URL the platform (or the
// uploader) can fetch.
type MediaResolver interface {
	ResolveURL(ctx context.Context, userID int64, mediaRef string) (string, error)
}
