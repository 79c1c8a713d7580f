package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/postflow/internal/engine"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PublishService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PublishCreation) (string, error)
	Status(ctx context.Context, userID int64, requestID string) (*transfer.PublishStatus, error)
	List(ctx context.Context, userID int64) ([]*models.PublishRequest, error)
	AccountStatus(ctx context.Context, userID, accountID int64) (*engine.AccountSummary, error)
	Cancel(ctx context.Context, userID int64, requestID string) error
}

type publishService struct {
	cfg       engine.Config
	registry  *platforms.Registry
	scheduler *engine.Scheduler
	pr        repository.PublishRequestRepository
	pa        repository.PublishAttemptRepository
	sa        repository.SocialAccountRepository
	ma        repository.MediaAssetRepository
}

func NewPublishService(
	cfg engine.Config,
	registry *platforms.Registry,
	scheduler *engine.Scheduler,
	pr repository.PublishRequestRepository,
	pa repository.PublishAttemptRepository,
	sa repository.SocialAccountRepository,
	ma repository.MediaAssetRepository) PublishService {
	return &publishService{
		cfg:       cfg,
		registry:  registry,
		scheduler: scheduler,
		pr:        pr,
		pa:        pa,
		sa:        sa,
		ma:        ma,
	}
}

func (s *publishService) Create(ctx context.Context, userID int64, pc *transfer.PublishCreation) (string, error) {
	if pc == nil {
		err := errors.New("publish creation data is nil")
		slog.Info(err.Error())
		return "", err
	}
	if pc.AccountID == 0 {
		err := errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return "", err
	}
	if pc.MediaRef == "" {
		err := errors.New("no media provided for the post")
		slog.Info(err.Error())
		return "", err
	}

	scheduledTime, err := time.Parse(time.RFC3339, pc.ScheduledTime)
	if err != nil {
		// Also accept the datetime-local format the web client sends.
		scheduledTime, err = time.Parse("2006-01-02T15:04", pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Info(err.Error())
			return "", err
		}
	}

	priority := pc.Priority
	if priority == 0 {
		priority = models.PriorityNormal
	}
	if priority < models.PriorityLow || priority > models.PriorityUrgent {
		err := fmt.Errorf("priority %d is out of range", priority)
		slog.Info(err.Error())
		return "", err
	}

	exists, err := s.sa.CheckByUserID(ctx, pc.AccountID, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return "", err
	}

	account, err := s.sa.GetByID(ctx, pc.AccountID)
	if err != nil {
		return "", err
	}
	if account.Status == models.AccountStatusDisconnected {
		err = errors.New("social account is disconnected")
		slog.Info(err.Error())
		return "", err
	}

	asset, err := s.mediaAsset(ctx, userID, pc.MediaRef)
	if err != nil {
		return "", err
	}

	if err := s.checkPlatformConstraints(account.Platform, asset); err != nil {
		return "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error generating request id")
	}

	req := &models.PublishRequest{
		ID:            id,
		UserID:        userID,
		AccountID:     pc.AccountID,
		MediaRef:      pc.MediaRef,
		Title:         pc.Title,
		Caption:       pc.Caption,
		Hashtags:      pc.Hashtags,
		ScheduledTime: scheduledTime.UTC(),
		Priority:      priority,
	}

	if err := s.scheduler.Submit(ctx, req); err != nil {
		return "", err
	}

	return id, nil
}

func (s *publishService) mediaAsset(ctx context.Context, userID int64, mediaRef string) (*models.MediaAsset, error) {
	owned, err := s.ma.CheckByUserID(ctx, mediaRef, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		err = errors.New("media asset doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}
	return s.ma.GetByID(ctx, mediaRef)
}

// checkPlatformConstraints rejects media the target platform cannot
// accept, so the failure surfaces at submission instead of at publish
// time.
func (s *publishService) checkPlatformConstraints(platformID string, asset *models.MediaAsset) error {
	platform, err := s.registry.Get(platformID)
	if err != nil {
		return err
	}

	if platform.MaxFileSizeMB > 0 && float64(asset.FileSize)/(1024*1024) > platform.MaxFileSizeMB {
		err := fmt.Errorf("file exceeds the %s size limit of %.0f MB", platform.DisplayName, platform.MaxFileSizeMB)
		slog.Info(err.Error())
		return err
	}

	if len(platform.SupportedFormats) > 0 {
		supported := false
		for _, format := range platform.SupportedFormats {
			if "video/"+format == asset.FileType || format == asset.FileType {
				supported = true
				break
			}
		}
		if !supported {
			err := fmt.Errorf("file type %s is not supported by %s", asset.FileType, platform.DisplayName)
			slog.Info(err.Error())
			return err
		}
	}

	return nil
}

func (s *publishService) Status(ctx context.Context, userID int64, requestID string) (*transfer.PublishStatus, error) {
	req, err := s.ownedRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.pa.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	status := &transfer.PublishStatus{
		RequestID:      req.ID,
		Status:         engine.DeriveStatus(req, attempts, s.cfg.MaxAttempts),
		PlatformPostID: req.PlatformPostID,
		Attempts:       make([]transfer.AttemptSummary, 0, len(attempts)),
	}
	for _, a := range attempts {
		status.Attempts = append(status.Attempts, transfer.AttemptSummary{
			Number:         a.Number,
			Outcome:        a.Outcome,
			Reason:         a.Reason,
			PlatformPostID: a.PlatformPostID,
			StartedAt:      a.StartedAt.Format(time.RFC3339),
		})
	}
	return status, nil
}

func (s *publishService) List(ctx context.Context, userID int64) ([]*models.PublishRequest, error) {
	requests, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting publish requests")
	}
	return requests, nil
}

func (s *publishService) AccountStatus(ctx context.Context, userID, accountID int64) (*engine.AccountSummary, error) {
	exists, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = errors.New("social account doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	requests, err := s.pr.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(requests))
	for _, req := range requests {
		attempts, err := s.pa.ListByRequestID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, engine.DeriveStatus(req, attempts, s.cfg.MaxAttempts))
	}

	summary := engine.Summarize(statuses)
	return &summary, nil
}

func (s *publishService) Cancel(ctx context.Context, userID int64, requestID string) error {
	if _, err := s.ownedRequest(ctx, userID, requestID); err != nil {
		return err
	}
	return s.scheduler.Cancel(ctx, requestID)
}

func (s *publishService) ownedRequest(ctx context.Context, userID int64, requestID string) (*models.PublishRequest, error) {
	if userID == 0 || requestID == "" {
		err := errors.New("request id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("publish request doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.pr.GetByID(ctx, requestID)
}
