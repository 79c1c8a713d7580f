// Package oauth implements the authorization-code and refresh-token
// flows shared by every supported platform.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/transfer"
	"github.com/maheshrc27/postflow/pkg/utils"
)

// 24 random bytes give 192 bits of state entropy.
const stateBytes = 24

// PendingTTL bounds how long an authorization URL stays redeemable.
const PendingTTL = 10 * time.Minute

// AuthorizationRequest is the result of BeginAuthorization: the URL to
// redirect the user to and the state that identifies the flow.
type AuthorizationRequest struct {
	URL   string `json:"authorization_url"`
	State string `json:"state"`
}

// Grant is a freshly exchanged set of tokens, not yet bound to a
// social account.
type Grant struct {
	Platform     string
	UserID       int64
	Scopes       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Connector struct {
	registry *platforms.Registry
	clients  map[string]config.OAuthClient
	pending  repository.PendingAuthRepository
	client   *http.Client
	ttl      time.Duration
}

func NewConnector(cfg config.Config, registry *platforms.Registry, pending repository.PendingAuthRepository) *Connector {
	return &Connector{
		registry: registry,
		clients: map[string]config.OAuthClient{
			platforms.Tiktok:    cfg.Tiktok,
			platforms.Instagram: cfg.Instagram,
			platforms.Youtube:   cfg.Google,
		},
		pending: pending,
		client:  &http.Client{Timeout: cfg.Engine.CallTimeout},
		ttl:     PendingTTL,
	}
}

// BeginAuthorization builds the authorization URL for a platform and
// persists the pending state. When requestedScopes is empty the
// platform's default scopes are used.
func (c *Connector) BeginAuthorization(ctx context.Context, platformID string, userID int64, requestedScopes []string) (*AuthorizationRequest, error) {
	platform, err := c.registry.Get(platformID)
	if err != nil {
		return nil, err
	}
	client, ok := c.clients[platformID]
	if !ok {
		return nil, fmt.Errorf("no client registered for platform %s", platformID)
	}

	state, err := utils.GenerateURLSafeToken(stateBytes)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("generating state: %w", err)
	}

	scopes := requestedScopes
	if len(scopes) == 0 {
		scopes = platform.Scopes
	}

	pending := &models.PendingAuthorization{
		State:     state,
		UserID:    userID,
		Platform:  platformID,
		Scopes:    strings.Join(scopes, " "),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}

	params := url.Values{}
	params.Add(clientIDParam(platformID), client.ClientID)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(scopes, scopeSeparator(platformID)))
	params.Add("redirect_uri", client.RedirectURI)
	params.Add("state", state)

	if platform.PKCERequired {
		verifier, err := NewCodeVerifier()
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("generating code verifier: %w", err)
		}
		pending.CodeVerifier = verifier
		params.Add("code_challenge", CodeChallenge(verifier))
		params.Add("code_challenge_method", "S256")
	}

	if platformID == platforms.Youtube {
		params.Add("access_type", "offline")
		params.Add("prompt", "consent")
	}

	if err := c.pending.Create(ctx, pending); err != nil {
		return nil, err
	}

	return &AuthorizationRequest{
		URL:   fmt.Sprintf("%s?%s", platform.AuthorizeURL, params.Encode()),
		State: state,
	}, nil
}

// CompleteAuthorization consumes the pending state and exchanges the
// authorization code for tokens. The state is single-use: a second call
// with the same state fails with ErrInvalidState regardless of what the
// first call returned.
func (c *Connector) CompleteAuthorization(ctx context.Context, platformID, code, state string) (*Grant, error) {
	pending, ok, err := c.pending.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok || pending.Expired(time.Now()) {
		return nil, ErrInvalidState
	}
	if pending.Platform != platformID {
		return nil, ErrPlatformMismatch
	}

	platform, err := c.registry.Get(platformID)
	if err != nil {
		return nil, err
	}
	client := c.clients[platformID]

	data := url.Values{}
	data.Set(clientIDParam(platformID), client.ClientID)
	data.Set("client_secret", client.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", client.RedirectURI)
	if pending.CodeVerifier != "" {
		data.Set("code_verifier", pending.CodeVerifier)
	}

	resp, err := c.postForm(ctx, platform.TokenURL, data)
	if err != nil {
		return nil, &ExchangeError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		slog.Info("token endpoint rejected code exchange",
			"platform", platformID, "status", resp.StatusCode)
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token transfer.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if token.AccessToken == "" {
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &Grant{
		Platform:     platformID,
		UserID:       pending.UserID,
		Scopes:       pending.Scopes,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt(token.ExpiresIn),
	}, nil
}

// Refresh exchanges the credential's refresh token for a new access
// token. Platforms may rotate the refresh token; the returned credential
// carries whichever token is current.
func (c *Connector) Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if !cred.Refreshable() {
		return nil, ErrNotRefreshable
	}

	platform, err := c.registry.Get(cred.Platform)
	if err != nil {
		return nil, err
	}
	client := c.clients[cred.Platform]

	data := url.Values{}
	data.Set(clientIDParam(cred.Platform), client.ClientID)
	data.Set("client_secret", client.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", cred.RefreshToken)

	resp, err := c.postForm(ctx, platform.TokenURL, data)
	if err != nil {
		return nil, &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RefreshError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var failure transfer.TokenErrorResponse
		_ = json.Unmarshal(body, &failure)
		slog.Info("token refresh rejected",
			"platform", cred.Platform, "status", resp.StatusCode, "code", failure.Error)
		return nil, &RefreshError{
			Code:        failure.Error,
			Description: failure.ErrorDescription,
			StatusCode:  resp.StatusCode,
		}
	}

	var token transfer.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &RefreshError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if token.AccessToken == "" {
		return nil, &RefreshError{Err: fmt.Errorf("token response missing access_token")}
	}

	refreshed := &models.Credential{
		AccountID:    cred.AccountID,
		Platform:     cred.Platform,
		AccessToken:  token.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    expiresAt(token.ExpiresIn),
		UpdatedAt:    time.Now(),
	}
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	return refreshed, nil
}

func (c *Connector) postForm(ctx context.Context, tokenURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.client.Do(req)
}

// TikTok registers a client key rather than a client id.
func clientIDParam(platformID string) string {
	if platformID == platforms.Tiktok {
		return "client_key"
	}
	return "client_id"
}

// TikTok and Instagram expect comma-joined scopes; Google expects spaces.
func scopeSeparator(platformID string) string {
	switch platformID {
	case platforms.Tiktok, platforms.Instagram:
		return ","
	}
	return " "
}

func expiresAt(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
