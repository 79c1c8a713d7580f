package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
	// ResolveURL maps a media reference to a URL the platform can fetch.
	ResolveURL(ctx context.Context, userID int64, mediaRef string) (string, error)
}

type mediaService struct {
	ma repository.MediaAssetRepository
	r2 *R2Service
}

func NewMediaService(ma repository.MediaAssetRepository, r2 *R2Service) MediaService {
	return &mediaService{
		ma: ma,
		r2: r2,
	}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "webm": {}, "avi": {},
	}

	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, fmt.Errorf("unsupported file type: %w", err)
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := s.r2.UploadToR2(ctx, id, fileBytes, fileType.MIME.Value); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error uploading file")
	}

	asset := &models.MediaAsset{
		ID:       id,
		UserID:   userID,
		FileName: file.Filename,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  s.r2.PublicURL(id),
	}

	if err := s.ma.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("error saving media asset")
	}

	return asset, nil
}

func (s *mediaService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting media assets")
	}
	return assets, nil
}

func (s *mediaService) ResolveURL(ctx context.Context, userID int64, mediaRef string) (string, error) {
	owned, err := s.ma.CheckByUserID(ctx, mediaRef, userID)
	if err != nil {
		return "", err
	}
	if !owned {
		err = errors.New("media asset doesn't exist")
		slog.Info(err.Error())
		return "", err
	}

	asset, err := s.ma.GetByID(ctx, mediaRef)
	if err != nil {
		return "", err
	}

	return asset.FileURL, nil
}
