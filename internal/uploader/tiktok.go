package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/transfer"
)

const (
	tiktokCreatorInfoURL = "https://open.tiktokapis.com/v2/post/publish/creator_info/query/"
	tiktokVideoInitURL   = "https://open.tiktokapis.com/v2/post/publish/video/init/"
)

// TiktokUploader publishes videos through the TikTok Content Posting
// API using PULL_FROM_URL sourcing.
type TiktokUploader struct {
	client *http.Client
}

func NewTiktokUploader(timeout time.Duration) *TiktokUploader {
	return &TiktokUploader{client: &http.Client{Timeout: timeout}}
}

func (u *TiktokUploader) Upload(ctx context.Context, cred *models.Credential, mediaURL string, meta Metadata) (string, error) {
	if err := u.queryCreatorInfo(ctx, cred.AccessToken); err != nil {
		return "", err
	}

	privacy := meta.Privacy
	if privacy == "" {
		privacy = "PUBLIC_TO_EVERYONE"
	}

	payload := transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:                 meta.Title,
			PrivacyLevel:          privacy,
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: mediaURL,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokVideoInitURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", Transient(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Transient(err)
	}

	if resp.StatusCode != http.StatusOK {
		var result transfer.TikTokUploadResponse
		if err := json.Unmarshal(body, &result); err == nil && result.Error.Message != "" {
			slog.Info("tiktok rejected video init", "code", result.Error.Code, "message", result.Error.Message)
			return "", ClassifyStatus(resp.StatusCode, result.Error.Message)
		}
		return "", ClassifyStatus(resp.StatusCode, string(body))
	}

	var result transfer.TikTokUploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", Transient(fmt.Errorf("decoding upload response: %w", err))
	}
	if result.Data.PublishID == "" {
		return "", Transient(fmt.Errorf("tiktok response missing publish_id"))
	}

	return result.Data.PublishID, nil
}

func (u *TiktokUploader) queryCreatorInfo(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokCreatorInfoURL, nil)
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := u.client.Do(req)
	if err != nil {
		return Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return ClassifyStatus(resp.StatusCode, string(body))
	}
	return nil
}
