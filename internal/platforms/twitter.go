package platforms

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	twitterAuthURL = "https://twitter.com/i/oauth2/authorize"
	twitterAPIURL  = "https://api.twitter.com"

	// TweetMaxRunes is the hard character limit; content is truncated to it
	// before submission.
	TweetMaxRunes = 280
)

// TwitterAdapter publishes plain-text tweets. No media container step.
type TwitterAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	BaseURL string
	Client  *http.Client
}

func NewTwitterAdapter(clientID, clientSecret, redirectURI string) *TwitterAdapter {
	return &TwitterAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		BaseURL:      twitterAPIURL,
		Client:       http.DefaultClient,
	}
}

func (a *TwitterAdapter) Platform() string { return "twitter" }

func (a *TwitterAdapter) AuthURL(state, verifier string) string {
	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "tweet.read tweet.write users.read offline.access")
	params.Add("state", state)
	params.Add("code_challenge", pkceChallenge(verifier))
	params.Add("code_challenge_method", "S256")
	return fmt.Sprintf("%s?%s", twitterAuthURL, params.Encode())
}

// pkceChallenge derives the S256 code challenge from a verifier.
func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

type twitterTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type twitterErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Error  string `json:"error"`
	Desc   string `json:"error_description"`
}

func (e *twitterErrorResponse) message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Desc != "":
		return e.Desc
	case e.Title != "":
		return e.Title
	case e.Error != "":
		return e.Error
	}
	return ""
}

func (a *TwitterAdapter) checkConfig() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return &ConfigError{Platform: a.Platform(), Missing: "client id or secret"}
	}
	return nil
}

func (a *TwitterAdapter) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(a.ClientID + ":" + a.ClientSecret))
}

func (a *TwitterAdapter) tokenCall(ctx context.Context, form url.Values) (*TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.BaseURL+"/2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+a.basicAuth())

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var twErr twitterErrorResponse
		if err := decodeJSON(resp, &twErr); err == nil && twErr.message() != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: twErr.message()}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "token request rejected"}
	}

	var token twitterTokenResponse
	if err := decodeJSON(resp, &token); err != nil {
		return nil, err
	}
	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

func (a *TwitterAdapter) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Add("grant_type", "authorization_code")
	form.Add("code", code)
	form.Add("redirect_uri", a.RedirectURI)
	form.Add("code_verifier", verifier)
	return a.tokenCall(ctx, form)
}

func (a *TwitterAdapter) Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", grant.RefreshToken)
	return a.tokenCall(ctx, form)
}

type twitterUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

func (a *TwitterAdapter) Profile(ctx context.Context, accessToken string) (*AccountProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/2/users/me", nil)
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
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "user lookup rejected"}
	}

	var user twitterUserResponse
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &AccountProfile{
		AccountID:   user.Data.ID,
		AccountName: user.Data.Name,
		AccountType: "profile",
	}, nil
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Publish submits the tweet, truncating content to the hard limit first.
// Truncation counts runes, not bytes.
func (a *TwitterAdapter) Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error) {
	text := TruncateTweet(req.Content)

	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/2/tweets", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var twErr twitterErrorResponse
		if err := decodeJSON(resp, &twErr); err == nil && twErr.message() != "" {
			return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: twErr.message()}
		}
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "tweet rejected"}
	}

	var result tweetResponse
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.Data.ID == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "no tweet id returned"}
	}
	return &PublishResult{PlatformPostID: result.Data.ID}, nil
}

// TruncateTweet cuts text to the platform's character limit.
func TruncateTweet(text string) string {
	runes := []rune(text)
	if len(runes) <= TweetMaxRunes {
		return text
	}
	return string(runes[:TweetMaxRunes])
}
