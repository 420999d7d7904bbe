package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramGraphURL = "https://graph.instagram.com"
)

// InstagramAdapter publishes in two steps: create a media container from a
// publicly reachable URL, then publish the container by its creation id.
// The container step only accepts URLs the provider can pull, so inline or
// local media is rejected before any network call.
type InstagramAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	BaseURL  string
	TokenURL string
	Client   *http.Client
}

func NewInstagramAdapter(clientID, clientSecret, redirectURI string) *InstagramAdapter {
	return &InstagramAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      instagramGraphURL,
		TokenURL:     instagramTokenURL,
		Client:       http.DefaultClient,
	}
}

func (a *InstagramAdapter) Platform() string { return "instagram" }

func (a *InstagramAdapter) AuthURL(state, verifier string) string {
	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
	params.Add("response_type", "code")
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (a *InstagramAdapter) checkConfig() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return &ConfigError{Platform: a.Platform(), Missing: "client id or secret"}
	}
	return nil
}

type instagramError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		ErrorUserMsg string `json:"error_user_msg"`
	} `json:"error"`
}

func (e *instagramError) message() string {
	if e.Error.ErrorUserMsg != "" {
		return e.Error.ErrorUserMsg
	}
	return e.Error.Message
}

// Exchange performs the short-lived code-for-token call and immediately
// upgrades to a long-lived token. Both calls can fail independently; either
// aborts the handshake.
func (a *InstagramAdapter) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_id", a.ClientID)
	form.Set("client_secret", a.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.RedirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}
	defer resp.Body.Close()

	var shortLived struct {
		AccessToken      string `json:"access_token"`
		UserID           int64  `json:"user_id"`
		ErrorMessage     string `json:"error_message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := decodeJSON(resp, &shortLived); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || shortLived.AccessToken == "" {
		msg := shortLived.ErrorMessage
		if msg == "" {
			msg = shortLived.ErrorDescription
		}
		if msg == "" {
			msg = "token request rejected"
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: msg}
	}

	return a.upgradeToken(ctx, shortLived.AccessToken)
}

func (a *InstagramAdapter) upgradeToken(ctx context.Context, shortLivedToken string) (*TokenGrant, error) {
	reqURL := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		a.BaseURL, url.QueryEscape(a.ClientSecret), url.QueryEscape(shortLivedToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var igErr instagramError
		if err := decodeJSON(resp, &igErr); err == nil && igErr.message() != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: igErr.message()}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "long-lived token exchange rejected"}
	}

	var longLived struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := decodeJSON(resp, &longLived); err != nil {
		return nil, err
	}

	return &TokenGrant{
		AccessToken: longLived.AccessToken,
		// Long-lived tokens refresh with the token itself, not a separate
		// refresh credential.
		RefreshToken: longLived.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(longLived.ExpiresIn) * time.Second),
	}, nil
}

func (a *InstagramAdapter) Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error) {
	reqURL := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		a.BaseURL, url.QueryEscape(grant.RefreshToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var igErr instagramError
		if err := decodeJSON(resp, &igErr); err == nil && igErr.message() != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: igErr.message()}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "token refresh rejected"}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return &TokenGrant{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

type instagramUserInfo struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (a *InstagramAdapter) Profile(ctx context.Context, accessToken string) (*AccountProfile, error) {
	reqURL := fmt.Sprintf("%s/me?fields=id,username,name,account_type&access_token=%s", a.BaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info instagramUserInfo
	if err := decodeJSON(resp, &info); err != nil {
		return nil, err
	}
	name := info.Name
	if name == "" {
		name = info.Username
	}
	// Content publishing requires a business account, which behaves like a
	// page for account resolution.
	return &AccountProfile{AccountID: info.UserID, AccountName: name, AccountType: "page"}, nil
}

type instagramContainerResponse struct {
	ID string `json:"id"`
}

// Publish creates the media container then publishes it. Both steps report
// provider-side errors that propagate as the failure reason.
func (a *InstagramAdapter) Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error) {
	mediaURL, ok := firstPublicMediaURL(req.MediaURLs)
	if !ok {
		return nil, &ValidationError{Reason: "instagram requires a publicly reachable media URL; inline or local media cannot be published"}
	}

	payload := map[string]interface{}{
		"caption":      req.Content,
		"access_token": creds.AccessToken,
	}
	if detectMediaKind(ctx, a.Client, mediaURL) == mediaKindVideo {
		payload["media_type"] = "REELS"
		payload["video_url"] = mediaURL
	} else {
		payload["image_url"] = mediaURL
	}

	creationID, err := a.graphCall(ctx, fmt.Sprintf("%s/%s/media", a.BaseURL, creds.AccountID), payload)
	if err != nil {
		return nil, err
	}
	if creationID == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: http.StatusOK, Message: "no creation id returned for media container"}
	}

	postID, err := a.graphCall(ctx, fmt.Sprintf("%s/%s/media_publish", a.BaseURL, creds.AccountID), map[string]interface{}{
		"creation_id":  creationID,
		"access_token": creds.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	if postID == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: http.StatusOK, Message: "no media id returned on publish"}
	}
	return &PublishResult{PlatformPostID: postID}, nil
}

func (a *InstagramAdapter) graphCall(ctx context.Context, reqURL string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var igErr instagramError
		if err := decodeJSON(resp, &igErr); err == nil && igErr.message() != "" {
			return "", &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: igErr.message()}
		}
		return "", &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "graph call rejected"}
	}

	var result instagramContainerResponse
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}
