// Package platforms holds the static description of every supported
// social platform. The registry is built once at startup and is
// read-only afterwards.
package platforms

import (
	"fmt"
	"time"
)

const (
	Tiktok    = "tiktok"
	Instagram = "instagram"
	Youtube   = "youtube"
)

const (
	TIKTOK_AUTH_URL     = "https://www.tiktok.com/v2/auth/authorize"
	TIKTOK_TOKEN_URL    = "https://open.tiktokapis.com/v2/oauth/token/"
	GOOGLE_AUTH_URL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GOOGLE_TOKEN_URL    = "https://oauth2.googleapis.com/token"
	INSTAGRAM_AUTH_URL  = "https://www.instagram.com/oauth/authorize"
	INSTAGRAM_TOKEN_URL = "https://api.instagram.com/oauth/access_token"
)

// Platform describes one supported platform: where to send the user for
// authorization, where to exchange codes, and what the platform accepts.
type Platform struct {
	ID           string
	DisplayName  string
	AuthorizeURL string
	TokenURL     string
	Scopes       []string
	PKCERequired bool

	// Upload constraints, checked at submission when known.
	MaxVideoDuration time.Duration
	MaxFileSizeMB    float64
	SupportedFormats []string
}

type Registry struct {
	platforms map[string]Platform
}

// NewRegistry returns the registry of supported platforms.
func NewRegistry() *Registry {
	r := &Registry{platforms: make(map[string]Platform)}

	r.Register(Platform{
		ID:           Tiktok,
		DisplayName:  "TikTok",
		AuthorizeURL: TIKTOK_AUTH_URL,
		TokenURL:     TIKTOK_TOKEN_URL,
		Scopes:       []string{"user.info.basic", "user.info.profile", "video.publish", "video.upload"},
		PKCERequired: true,

		MaxVideoDuration: 10 * time.Minute,
		MaxFileSizeMB:    4096,
		SupportedFormats: []string{"mp4", "mov", "webm"},
	})

	r.Register(Platform{
		ID:           Instagram,
		DisplayName:  "Instagram",
		AuthorizeURL: INSTAGRAM_AUTH_URL,
		TokenURL:     INSTAGRAM_TOKEN_URL,
		Scopes:       []string{"instagram_business_basic", "instagram_business_content_publish"},
		PKCERequired: false,

		MaxVideoDuration: 15 * time.Minute,
		MaxFileSizeMB:    1024,
		SupportedFormats: []string{"mp4", "mov"},
	})

	r.Register(Platform{
		ID:           Youtube,
		DisplayName:  "YouTube",
		AuthorizeURL: GOOGLE_AUTH_URL,
		TokenURL:     GOOGLE_TOKEN_URL,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
		PKCERequired: false,

		MaxVideoDuration: 12 * time.Hour,
		MaxFileSizeMB:    128 * 1024,
		SupportedFormats: []string{"mp4", "mov", "avi", "webm"},
	})

	return r
}

// Register adds or replaces a platform descriptor.
func (r *Registry) Register(p Platform) {
	r.platforms[p.ID] = p
}

// Get returns the platform descriptor for id.
func (r *Registry) Get(id string) (Platform, error) {
	p, ok := r.platforms[id]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported platform: %s", id)
	}
	return p, nil
}

// List returns all registered platforms.
func (r *Registry) List() []Platform {
	list := make([]Platform, 0, len(r.platforms))
	for _, p := range r.platforms {
		list = append(list, p)
	}
	return list
}
