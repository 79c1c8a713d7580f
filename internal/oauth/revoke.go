package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// Revoke invalidates the access token at the platform. Instagram has
// no revocation endpoint; removing the stored credential is the best
// that can be done there.
func (c *Connector) Revoke(ctx context.Context, platformID, externalID, accessToken string) error {
	switch platformID {
	case platforms.Tiktok:
		return c.revokeTiktok(ctx, externalID, accessToken)
	case platforms.Youtube:
		return c.revokeGoogle(ctx, accessToken)
	case platforms.Instagram:
		return nil
	}
	return fmt.Errorf("unknown platform %s", platformID)
}

func (c *Connector) revokeTiktok(ctx context.Context, openID, accessToken string) error {
	urlRevoke := "https://open-api.tiktok.com/oauth/revoke/"
	params := url.Values{}
	params.Add("open_id", openID)
	params.Add("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", urlRevoke, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result transfer.TiktokRevokeData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (c *Connector) revokeGoogle(ctx context.Context, accessToken string) error {
	payload := []byte("token=" + accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", "https://oauth2.googleapis.com/revoke", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
