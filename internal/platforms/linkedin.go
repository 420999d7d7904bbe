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
	linkedinAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinAPIURL   = "https://api.linkedin.com"
)

// LinkedinAdapter publishes UGC posts. The payload shape is strict: an
// author URN, a lifecycle state, a visibility enum, and a nested content
// category; media is declared NONE when absent.
type LinkedinAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	BaseURL  string
	TokenURL string
	Client   *http.Client
}

func NewLinkedinAdapter(clientID, clientSecret, redirectURI string) *LinkedinAdapter {
	return &LinkedinAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      linkedinAPIURL,
		TokenURL:     linkedinTokenURL,
		Client:       http.DefaultClient,
	}
}

func (a *LinkedinAdapter) Platform() string { return "linkedin" }

func (a *LinkedinAdapter) AuthURL(state, verifier string) string {
	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "openid profile w_member_social")
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", linkedinAuthURL, params.Encode())
}

func (a *LinkedinAdapter) checkConfig() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return &ConfigError{Platform: a.Platform(), Missing: "client id or secret"}
	}
	return nil
}

type linkedinTokenResponse struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

func (a *LinkedinAdapter) tokenCall(ctx context.Context, form url.Values) (*TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var token linkedinTokenResponse
	if err := decodeJSON(resp, &token); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || token.AccessToken == "" {
		msg := token.ErrorDescription
		if msg == "" {
			msg = "token request rejected"
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: msg}
	}

	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

func (a *LinkedinAdapter) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Add("grant_type", "authorization_code")
	form.Add("code", code)
	form.Add("client_id", a.ClientID)
	form.Add("client_secret", a.ClientSecret)
	form.Add("redirect_uri", a.RedirectURI)
	return a.tokenCall(ctx, form)
}

func (a *LinkedinAdapter) Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", grant.RefreshToken)
	form.Add("client_id", a.ClientID)
	form.Add("client_secret", a.ClientSecret)
	return a.tokenCall(ctx, form)
}

type linkedinUserinfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (a *LinkedinAdapter) Profile(ctx context.Context, accessToken string) (*AccountProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "userinfo rejected"}
	}

	var info linkedinUserinfo
	if err := decodeJSON(resp, &info); err != nil {
		return nil, err
	}
	return &AccountProfile{
		AccountID:   info.Sub,
		AccountName: info.Name,
		AccountType: "profile",
	}, nil
}

// Typed UGC post payload. Required and optional fields are enforced by the
// struct shape rather than by string building.
type linkedinShareText struct {
	Text string `json:"text"`
}

type linkedinMedia struct {
	Status      string             `json:"status"`
	OriginalURL string             `json:"originalUrl"`
	Title       *linkedinShareText `json:"title,omitempty"`
}

type linkedinShareContent struct {
	ShareCommentary    linkedinShareText `json:"shareCommentary"`
	ShareMediaCategory string            `json:"shareMediaCategory"`
	Media              []linkedinMedia   `json:"media,omitempty"`
}

type linkedinSpecificContent struct {
	ShareContent linkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type linkedinVisibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

type linkedinUGCPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent linkedinSpecificContent `json:"specificContent"`
	Visibility      linkedinVisibility      `json:"visibility"`
}

type linkedinPostResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// AuthorURN qualifies a raw account id as a LinkedIn URN unless it already
// is one. Page-type accounts map to organization URNs.
func AuthorURN(accountID, accountType string) string {
	if strings.HasPrefix(accountID, "urn:li:") {
		return accountID
	}
	if accountType == "page" {
		return "urn:li:organization:" + accountID
	}
	return "urn:li:person:" + accountID
}

func (a *LinkedinAdapter) Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error) {
	category := "NONE"
	var media []linkedinMedia
	if mediaURL, ok := firstPublicMediaURL(req.MediaURLs); ok {
		category = "IMAGE"
		media = []linkedinMedia{{Status: "READY", OriginalURL: mediaURL}}
	} else if req.LinkURL != "" {
		category = "ARTICLE"
		media = []linkedinMedia{{Status: "READY", OriginalURL: req.LinkURL}}
	}

	payload := linkedinUGCPost{
		Author:         AuthorURN(creds.AccountID, creds.AccountType),
		LifecycleState: "PUBLISHED",
		SpecificContent: linkedinSpecificContent{
			ShareContent: linkedinShareContent{
				ShareCommentary:    linkedinShareText{Text: req.Content},
				ShareMediaCategory: category,
				Media:              media,
			},
		},
		Visibility: linkedinVisibility{MemberNetworkVisibility: "PUBLIC"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/v2/ugcPosts", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result linkedinPostResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg := result.Message
		if msg == "" {
			msg = "ugc post rejected"
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: msg}
	}

	if result.ID == "" {
		result.ID = resp.Header.Get("X-Restli-Id")
	}
	if result.ID == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "no post id returned"}
	}
	return &PublishResult{PlatformPostID: result.ID}, nil
}
