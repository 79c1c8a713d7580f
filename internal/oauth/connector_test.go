package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platforms"
)

type fakePendingRepo struct {
	mu    sync.Mutex
	items map[string]*models.PendingAuthorization
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{items: make(map[string]*models.PendingAuthorization)}
}

func (f *fakePendingRepo) Create(ctx context.Context, p *models.PendingAuthorization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *p
	f.items[p.State] = &stored
	return nil
}

func (f *fakePendingRepo) Consume(ctx context.Context, state string) (*models.PendingAuthorization, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[state]
	if !ok {
		return nil, false, nil
	}
	delete(f.items, state)
	return p, true, nil
}

func (f *fakePendingRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for state, p := range f.items {
		if p.ExpiresAt.Before(before) {
			delete(f.items, state)
			n++
		}
	}
	return n, nil
}

func testConfig() config.Config {
	return config.Config{
		Tiktok: config.OAuthClient{
			ClientID:     "tiktok-client-key",
			ClientSecret: "tiktok-secret",
			RedirectURI:  "https://example.com/auth/tiktok/callback",
		},
		Google: config.OAuthClient{
			ClientID:     "google-client-id",
			ClientSecret: "google-secret",
			RedirectURI:  "https://example.com/auth/youtube/callback",
		},
		Instagram: config.OAuthClient{
			ClientID:     "instagram-client-id",
			ClientSecret: "instagram-secret",
			RedirectURI:  "https://example.com/auth/instagram/callback",
		},
		Engine: config.Engine{CallTimeout: 5 * time.Second},
	}
}

func testConnector(t *testing.T, tokenURL string) (*Connector, *fakePendingRepo) {
	t.Helper()

	registry := platforms.NewRegistry()
	if tokenURL != "" {
		for _, p := range registry.List() {
			p.TokenURL = tokenURL
			registry.Register(p)
		}
	}

	pending := newFakePendingRepo()
	return NewConnector(testConfig(), registry, pending), pending
}

func TestBeginAuthorizationTiktokUsesPKCE(t *testing.T) {
	c, pending := testConnector(t, "")

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Tiktok, 42, nil)
	require.NoError(t, err)

	u, err := url.Parse(authReq.URL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "tiktok-client-key", q.Get("client_key"))
	assert.Empty(t, q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, authReq.State, q.Get("state"))
	assert.Contains(t, q.Get("scope"), ",")

	stored := pending.items[authReq.State]
	require.NotNil(t, stored)
	assert.Equal(t, int64(42), stored.UserID)
	assert.Equal(t, CodeChallenge(stored.CodeVerifier), q.Get("code_challenge"))
}

func TestBeginAuthorizationYoutubeOffline(t *testing.T) {
	c, _ := testConnector(t, "")

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Youtube, 7, nil)
	require.NoError(t, err)

	u, err := url.Parse(authReq.URL)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "google-client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Empty(t, q.Get("code_challenge"))
	assert.Contains(t, q.Get("scope"), "youtube.upload")
}

func TestBeginAuthorizationStateUniqueness(t *testing.T) {
	c, _ := testConnector(t, "")

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		authReq, err := c.BeginAuthorization(context.Background(), platforms.Youtube, 1, nil)
		require.NoError(t, err)
		_, dup := seen[authReq.State]
		require.False(t, dup, "state generated twice")
		seen[authReq.State] = struct{}{}
	}
}

func TestBeginAuthorizationUnknownPlatform(t *testing.T) {
	c, _ := testConnector(t, "")

	_, err := c.BeginAuthorization(context.Background(), "myspace", 1, nil)
	assert.Error(t, err)
}

func TestCompleteAuthorizationSingleUseState(t *testing.T) {
	var exchanges int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.NotEmpty(t, r.Form.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Tiktok, 42, nil)
	require.NoError(t, err)

	grant, err := c.CompleteAuthorization(context.Background(), platforms.Tiktok, "the-code", authReq.State)
	require.NoError(t, err)
	assert.Equal(t, "at-1", grant.AccessToken)
	assert.Equal(t, "rt-1", grant.RefreshToken)
	assert.Equal(t, int64(42), grant.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), grant.ExpiresAt, 5*time.Second)

	_, err = c.CompleteAuthorization(context.Background(), platforms.Tiktok, "the-code", authReq.State)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, exchanges)
}

func TestCompleteAuthorizationUnknownState(t *testing.T) {
	c, _ := testConnector(t, "")

	_, err := c.CompleteAuthorization(context.Background(), platforms.Tiktok, "code", "never-issued")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorizationExpiredState(t *testing.T) {
	c, pending := testConnector(t, "")

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Tiktok, 1, nil)
	require.NoError(t, err)

	pending.mu.Lock()
	pending.items[authReq.State].ExpiresAt = time.Now().Add(-time.Minute)
	pending.mu.Unlock()

	_, err = c.CompleteAuthorization(context.Background(), platforms.Tiktok, "code", authReq.State)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Expiry consumed the state as well.
	_, err = c.CompleteAuthorization(context.Background(), platforms.Tiktok, "code", authReq.State)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteAuthorizationPlatformMismatch(t *testing.T) {
	c, _ := testConnector(t, "")

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Tiktok, 1, nil)
	require.NoError(t, err)

	_, err = c.CompleteAuthorization(context.Background(), platforms.Instagram, "code", authReq.State)
	assert.ErrorIs(t, err, ErrPlatformMismatch)
}

func TestCompleteAuthorizationExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_request"}`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	authReq, err := c.BeginAuthorization(context.Background(), platforms.Youtube, 1, nil)
	require.NoError(t, err)

	_, err = c.CompleteAuthorization(context.Background(), platforms.Youtube, "bad-code", authReq.State)
	var exchangeErr *ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "invalid_request")
}

func TestRefreshRotatesRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-old", r.Form.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","expires_in":7200}`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	refreshed, err := c.Refresh(context.Background(), &models.Credential{
		AccountID:    5,
		Platform:     platforms.Tiktok,
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
	})
	require.NoError(t, err)
	assert.Equal(t, "at-new", refreshed.AccessToken)
	assert.Equal(t, "rt-new", refreshed.RefreshToken)
	assert.Equal(t, int64(5), refreshed.AccountID)
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","expires_in":3600}`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	refreshed, err := c.Refresh(context.Background(), &models.Credential{
		AccountID:    5,
		Platform:     platforms.Youtube,
		RefreshToken: "rt-keep",
	})
	require.NoError(t, err)
	assert.Equal(t, "rt-keep", refreshed.RefreshToken)
}

func TestRefreshInvalidGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been revoked."}`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	_, err := c.Refresh(context.Background(), &models.Credential{
		AccountID:    5,
		Platform:     platforms.Youtube,
		RefreshToken: "rt-revoked",
	})
	require.Error(t, err)
	assert.True(t, IsInvalidGrant(err))
}

func TestRefreshServerErrorIsNotInvalidGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream unavailable`))
	}))
	defer srv.Close()

	c, _ := testConnector(t, srv.URL)

	_, err := c.Refresh(context.Background(), &models.Credential{
		AccountID:    5,
		Platform:     platforms.Youtube,
		RefreshToken: "rt-ok",
	})
	require.Error(t, err)
	assert.False(t, IsInvalidGrant(err))
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	c, _ := testConnector(t, "")

	_, err := c.Refresh(context.Background(), &models.Credential{
		AccountID: 5,
		Platform:  platforms.Instagram,
	})
	assert.ErrorIs(t, err, ErrNotRefreshable)
}

func TestScopeJoining(t *testing.T) {
	c, _ := testConnector(t, "")

	tiktokReq, err := c.BeginAuthorization(context.Background(), platforms.Tiktok, 1, []string{"video.publish", "video.upload"})
	require.NoError(t, err)
	u, _ := url.Parse(tiktokReq.URL)
	assert.Equal(t, "video.publish,video.upload", u.Query().Get("scope"))

	ytReq, err := c.BeginAuthorization(context.Background(), platforms.Youtube, 1, []string{"a", "b"})
	require.NoError(t, err)
	u, _ = url.Parse(ytReq.URL)
	assert.True(t, strings.Contains(u.Query().Get("scope"), "a b"))
}
