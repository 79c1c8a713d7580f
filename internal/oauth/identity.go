package oauth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maheshrc27/postflow/internal/platforms"
	"github.com/maheshrc27/postflow/internal/transfer"
)

// Identity is who the freshly authorized tokens belong to on the
// platform side. ExternalID keys the social account.
type Identity struct {
	ExternalID string
	Username   string
	AvatarURL  string
}

// FetchIdentity asks the platform who the access token belongs to.
func (c *Connector) FetchIdentity(platformID, accessToken string) (*Identity, error) {
	switch platformID {
	case platforms.Tiktok:
		return c.tiktokIdentity(accessToken)
	case platforms.Instagram:
		return c.instagramIdentity(accessToken)
	case platforms.Youtube:
		return c.googleIdentity(accessToken)
	}
	return nil, fmt.Errorf("no identity endpoint for platform %s", platformID)
}

func (c *Connector) tiktokIdentity(accessToken string) (*Identity, error) {
	url := "https://open.tiktokapis.com/v2/user/info/?fields=open_id,avatar_url,display_name,username"

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TikTokResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if result.Data.User.OpenID == "" {
		return nil, fmt.Errorf("tiktok user info failed: %s", result.Error.Message)
	}

	return &Identity{
		ExternalID: result.Data.User.OpenID,
		Username:   result.Data.User.Username,
		AvatarURL:  result.Data.User.AvatarURL,
	}, nil
}

func (c *Connector) instagramIdentity(accessToken string) (*Identity, error) {
	reqUrl := fmt.Sprintf(
		"https://graph.instagram.com/me?fields=id,username,name,account_type,profile_picture_url&access_token=%s",
		accessToken,
	)

	resp, err := c.client.Get(reqUrl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}
	if userInfo.UserID == "" {
		return nil, fmt.Errorf("instagram user info returned no id")
	}

	return &Identity{
		ExternalID: userInfo.UserID,
		Username:   userInfo.Username,
		AvatarURL:  userInfo.ProfilePicture,
	}, nil
}

func (c *Connector) googleIdentity(accessToken string) (*Identity, error) {
	req, err := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v1/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &Identity{
		ExternalID: userInfo.ID,
		Username:   userInfo.Name,
		AvatarURL:  userInfo.Picture,
	}, nil
}
