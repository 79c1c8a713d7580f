// Package uploader defines the platform upload capability the publish
// workers invoke, plus the concrete implementations for each supported
// platform.
package uploader

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow/internal/models"
)

// Metadata carries the post details an uploader needs beyond the media
// itself.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

// Uploader publishes one piece of media to one platform. mediaURL must
// be fetchable by the platform (or by the uploader itself). The returned
// string is the platform's post identifier.
type Uploader interface {
	Upload(ctx context.Context, cred *models.Credential, mediaURL string, meta Metadata) (string, error)
}

// Registry maps platform ids to their uploader implementation.
type Registry struct {
	uploaders map[string]Uploader
}

func NewRegistry() *Registry {
	return &Registry{uploaders: make(map[string]Uploader)}
}

func (r *Registry) Register(platformID string, u Uploader) {
	r.uploaders[platformID] = u
}

func (r *Registry) Get(platformID string) (Uploader, error) {
	u, ok := r.uploaders[platformID]
	if !ok {
		return nil, Permanent(fmt.Errorf("no uploader registered for platform %s", platformID))
	}
	return u, nil
}
