package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YoutubeUploader downloads the media from object storage and performs
// a resumable upload through the YouTube Data API.
type YoutubeUploader struct {
	client *http.Client
}

func NewYoutubeUploader(timeout time.Duration) *YoutubeUploader {
	return &YoutubeUploader{client: &http.Client{Timeout: timeout}}
}

func (u *YoutubeUploader) Upload(ctx context.Context, cred *models.Credential, mediaURL string, meta Metadata) (string, error) {
	token := &oauth2.Token{AccessToken: cred.AccessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", Transient(fmt.Errorf("creating youtube service: %w", err))
	}

	tempFile, err := u.download(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return "", Transient(err)
	}
	defer file.Close()

	privacy := meta.Privacy
	if privacy == "" {
		privacy = "public"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return "", classifyGoogleError(err)
	}

	return response.Id, nil
}

func (u *YoutubeUploader) download(ctx context.Context, mediaURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", Transient(err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		os.Remove(tempFile.Name())
		return "", Permanent(err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		os.Remove(tempFile.Name())
		return "", Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(tempFile.Name())
		return "", ClassifyStatus(resp.StatusCode, "fetching media")
	}

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		os.Remove(tempFile.Name())
		return "", Transient(err)
	}

	return tempFile.Name(), nil
}

func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return ClassifyStatus(apiErr.Code, apiErr.Message)
	}
	return Transient(err)
}
