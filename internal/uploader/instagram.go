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

const instagramGraphURL = "https://graph.instagram.com/v21.0"

// InstagramUploader publishes reels through the Instagram Graph API:
// create a media container from the hosted URL, then publish it.
type InstagramUploader struct {
	client *http.Client
}

func NewInstagramUploader(timeout time.Duration) *InstagramUploader {
	return &InstagramUploader{client: &http.Client{Timeout: timeout}}
}

func (u *InstagramUploader) Upload(ctx context.Context, cred *models.Credential, mediaURL string, meta Metadata) (string, error) {
	containerID, err := u.createContainer(ctx, cred, mediaURL, meta)
	if err != nil {
		return "", err
	}

	return u.publishContainer(ctx, cred, containerID)
}

func (u *InstagramUploader) createContainer(ctx context.Context, cred *models.Credential, mediaURL string, meta Metadata) (string, error) {
	payload := map[string]interface{}{
		"media_type":   "REELS",
		"video_url":    mediaURL,
		"caption":      meta.Description,
		"access_token": cred.AccessToken,
	}

	return u.post(ctx, fmt.Sprintf("%s/me/media", instagramGraphURL), payload)
}

func (u *InstagramUploader) publishContainer(ctx context.Context, cred *models.Credential, containerID string) (string, error) {
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": cred.AccessToken,
	}

	return u.post(ctx, fmt.Sprintf("%s/me/media_publish", instagramGraphURL), payload)
}

func (u *InstagramUploader) post(ctx context.Context, url string, payload map[string]interface{}) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		var failure transfer.InstagramErrorResponse
		if err := json.Unmarshal(body, &failure); err == nil && failure.Error.Message != "" {
			slog.Info("instagram rejected request", "code", failure.Error.Code, "message", failure.Error.Message)
			if failure.Error.IsTransient {
				return "", Transient(fmt.Errorf("instagram: %s", failure.Error.Message))
			}
			return "", ClassifyStatus(resp.StatusCode, failure.Error.Message)
		}
		return "", ClassifyStatus(resp.StatusCode, string(body))
	}

	var result transfer.InstagramContainerResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", Transient(fmt.Errorf("decoding response: %w", err))
	}
	if result.ID == "" {
		return "", Transient(fmt.Errorf("instagram response missing id"))
	}

	return result.ID, nil
}
