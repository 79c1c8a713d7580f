package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maheshrc27/postflow/internal/credentials"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/uploader"
)

// Requeuer is the slice of the scheduler a worker needs to schedule the
// next attempt after a transient failure.
type Requeuer interface {
	Requeue(ctx context.Context, req *models.PublishRequest, attemptsMade int) error
}

// Worker executes one publish attempt end to end: acquire a valid
// credential, call the platform uploader, record the attempt and move
// the request to its next state.
type Worker struct {
	cfg       Config
	creds     CredentialSource
	accounts  repository.SocialAccountRepository
	requests  repository.PublishRequestRepository
	attempts  repository.PublishAttemptRepository
	media     MediaResolver
	uploaders *uploader.Registry
	requeuer  Requeuer
}

func NewWorker(
	cfg Config,
	creds CredentialSource,
	accounts repository.SocialAccountRepository,
	requests repository.PublishRequestRepository,
	attempts repository.PublishAttemptRepository,
	media MediaResolver,
	uploaders *uploader.Registry,
	requeuer Requeuer,
) *Worker {
	return &Worker{
		cfg:       cfg,
		creds:     creds,
		accounts:  accounts,
		requests:  requests,
		attempts:  attempts,
		media:     media,
		uploaders: uploaders,
		requeuer:  requeuer,
	}
}

// Execute runs one attempt for the given request id. Delivery may be
// at-least-once, so it re-reads the request and only proceeds when it
// is still dispatched. Returns the recorded attempt, or nil when the
// request was skipped.
func (w *Worker) Execute(ctx context.Context, requestID string) (*models.PublishAttempt, error) {
	req, err := w.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Status != models.RequestStatusDispatched {
		return nil, nil
	}

	made, err := w.attempts.CountByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	number := made + 1
	started := time.Now().UTC()

	postID, attemptErr := w.attempt(ctx, req)

	record := &models.PublishAttempt{
		ID:         uuid.NewString(),
		RequestID:  req.ID,
		Number:     number,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	switch {
	case attemptErr == nil:
		record.Outcome = models.OutcomeSuccess
		record.PlatformPostID = postID
	case uploader.IsTransient(attemptErr):
		record.Outcome = models.OutcomeTransientFailure
		record.Reason = attemptErr.Error()
	default:
		record.Outcome = models.OutcomePermanentFailure
		record.Reason = attemptErr.Error()
	}
	if err := w.attempts.Create(ctx, record); err != nil {
		return nil, err
	}

	switch record.Outcome {
	case models.OutcomeSuccess:
		if err := w.requests.SetPlatformPostID(ctx, req.ID, postID); err != nil {
			return record, err
		}
		if _, err := w.requests.UpdateStatusIf(ctx, req.ID, models.RequestStatusDispatched, models.RequestStatusSucceeded); err != nil {
			return record, err
		}
		slog.Info("publish succeeded",
			slog.String("request_id", req.ID),
			slog.String("platform_post_id", postID),
			slog.Int("attempt", number))
	case models.OutcomePermanentFailure:
		if _, err := w.requests.UpdateStatusIf(ctx, req.ID, models.RequestStatusDispatched, models.RequestStatusFailed); err != nil {
			return record, err
		}
		slog.Info("publish failed permanently",
			slog.String("request_id", req.ID),
			slog.String("reason", record.Reason))
	case models.OutcomeTransientFailure:
		if number >= w.cfg.MaxAttempts {
			if _, err := w.requests.UpdateStatusIf(ctx, req.ID, models.RequestStatusDispatched, models.RequestStatusFailed); err != nil {
				return record, err
			}
			slog.Info("publish failed after exhausting attempts",
				slog.String("request_id", req.ID),
				slog.Int("attempts", number))
			break
		}
		if err := w.requeuer.Requeue(ctx, req, number); err != nil {
			return record, err
		}
		slog.Info("publish attempt will be retried",
			slog.String("request_id", req.ID),
			slog.Int("attempt", number),
			slog.String("reason", record.Reason))
	}
	return record, nil
}

func (w *Worker) attempt(ctx context.Context, req *models.PublishRequest) (string, error) {
	account, err := w.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		return "", uploader.Transient(err)
	}
	if account == nil {
		return "", uploader.Permanent(errors.New("social account no longer exists"))
	}

	cred, err := w.creds.GetValid(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, credentials.ErrReauthorizationRequired) || errors.Is(err, credentials.ErrNoCredential) {
			return "", uploader.Permanent(err)
		}
		return "", uploader.Transient(err)
	}

	mediaURL, err := w.media.ResolveURL(ctx, req.UserID, req.MediaRef)
	if err != nil {
		return "", uploader.Permanent(err)
	}

	up, err := w.uploaders.Get(account.Platform)
	if err != nil {
		return "", err
	}

	meta := uploader.Metadata{
		Title:       req.Title,
		Description: captionWithHashtags(req.Caption, req.Hashtags),
		Tags:        req.Hashtags,
	}

	callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()
	return up.Upload(callCtx, cred, mediaURL, meta)
}

// captionWithHashtags appends any hashtag not already present in the
// caption text.
func captionWithHashtags(caption string, hashtags []string) string {
	var missing []string
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if !strings.Contains(caption, tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) == 0 {
		return caption
	}
	if caption == "" {
		return strings.Join(missing, " ")
	}
	return caption + "\n\n" + strings.Join(missing, " ")
}
