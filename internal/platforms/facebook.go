package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	facebookAuthURL  = "https://www.facebook.com/v19.0/dialog/oauth"
	facebookGraphURL = "https://graph.facebook.com/v19.0"
)

// FacebookAdapter publishes to a Page feed. Personal profiles cannot receive
// feed posts through the Graph API, so page-type accounts are required.
type FacebookAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	BaseURL string
	Client  *http.Client
}

func NewFacebookAdapter(clientID, clientSecret, redirectURI string) *FacebookAdapter {
	return &FacebookAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      facebookGraphURL,
		Client:       http.DefaultClient,
	}
}

func (a *FacebookAdapter) Platform() string { return "facebook" }

func (a *FacebookAdapter) AuthURL(state, verifier string) string {
	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("scope", "pages_show_list,pages_manage_posts,pages_read_engagement")
	params.Add("response_type", "code")
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", facebookAuthURL, params.Encode())
}

func (a *FacebookAdapter) checkConfig() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return &ConfigError{Platform: a.Platform(), Missing: "client id or secret"}
	}
	return nil
}

type facebookTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type facebookErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Exchange swaps the authorization code for a user token, then immediately
// upgrades it to a long-lived token with a second call. Either call failing
// aborts the handshake with the provider's reason.
func (a *FacebookAdapter) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("client_secret", a.ClientSecret)
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("code", code)

	short, err := a.tokenCall(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get short-lived token: %w", err)
	}

	upgrade := url.Values{}
	upgrade.Add("grant_type", "fb_exchange_token")
	upgrade.Add("client_id", a.ClientID)
	upgrade.Add("client_secret", a.ClientSecret)
	upgrade.Add("fb_exchange_token", short.AccessToken)

	long, err := a.tokenCall(ctx, upgrade)
	if err != nil {
		return nil, fmt.Errorf("failed to get long-lived token: %w", err)
	}

	return &TokenGrant{
		AccessToken: long.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(long.ExpiresIn) * time.Second),
	}, nil
}

func (a *FacebookAdapter) tokenCall(ctx context.Context, params url.Values) (*facebookTokenResponse, error) {
	reqURL := fmt.Sprintf("%s/oauth/access_token?%s", a.BaseURL, params.Encode())
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
		var fbErr facebookErrorResponse
		if err := decodeJSON(resp, &fbErr); err == nil && fbErr.Error.Message != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: fbErr.Error.Message}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "token request rejected"}
	}

	var token facebookTokenResponse
	if err := decodeJSON(resp, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Refresh is not supported: long-lived user and page tokens are re-issued
// through a fresh exchange, not a refresh grant.
func (a *FacebookAdapter) Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error) {
	return nil, ErrRefreshUnsupported
}

type facebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type facebookPageList struct {
	Data []facebookPage `json:"data"`
}

type facebookProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile prefers the first managed Page, storing the page-scoped token.
// When the user manages no pages, a profile-type account is recorded; the
// publish path later rejects it with an actionable message instead of
// failing inside the Graph call.
func (a *FacebookAdapter) Profile(ctx context.Context, accessToken string) (*AccountProfile, error) {
	pagesURL := fmt.Sprintf("%s/me/accounts?access_token=%s", a.BaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pagesURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var pages facebookPageList
		if err := decodeJSON(resp, &pages); err != nil {
			return nil, err
		}
		if len(pages.Data) > 0 {
			page := pages.Data[0]
			return &AccountProfile{
				AccountID:   page.ID,
				AccountName: page.Name,
				AccountType: "page",
				PageToken:   page.AccessToken,
			}, nil
		}
	}

	meURL := fmt.Sprintf("%s/me?fields=id,name&access_token=%s", a.BaseURL, url.QueryEscape(accessToken))
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, meURL, nil)
	if err != nil {
		return nil, err
	}
	resp2, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp2.Body.Close()

	var me facebookProfile
	if err := decodeJSON(resp2, &me); err != nil {
		return nil, err
	}
	return &AccountProfile{AccountID: me.ID, AccountName: me.Name, AccountType: "profile"}, nil
}

type facebookFeedResponse struct {
	ID string `json:"id"`
}

// Publish posts message text to the page feed, attaching the link or the
// first public media URL when present.
func (a *FacebookAdapter) Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error) {
	if creds.AccountType != "page" {
		return nil, &ValidationError{Reason: "facebook publishing requires a connected Facebook Page; personal profiles cannot receive feed posts. Reconnect the account and grant access to a Page."}
	}

	form := url.Values{}
	form.Add("message", req.Content)
	form.Add("access_token", creds.AccessToken)
	if req.LinkURL != "" {
		form.Add("link", req.LinkURL)
	} else if mediaURL, ok := firstPublicMediaURL(req.MediaURLs); ok {
		form.Add("link", mediaURL)
	}

	feedURL := fmt.Sprintf("%s/%s/feed", a.BaseURL, creds.AccountID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, feedURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var fbErr facebookErrorResponse
		if err := decodeJSON(resp, &fbErr); err == nil && fbErr.Error.Message != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: fbErr.Error.Message}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "feed publish rejected"}
	}

	var result facebookFeedResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "no post id returned"}
	}
	return &PublishResult{PlatformPostID: result.ID}, nil
}
