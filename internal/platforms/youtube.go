package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const (
	googleAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	youtubeUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

	// MaxUploadBytes is the hard ceiling on fetched source media. Oversized
	// sources fail closed instead of buffering without bound.
	MaxUploadBytes = 256 << 20 // 256 MiB

	// mediaFetchTimeout bounds the source download; slow origins abort
	// instead of hanging a publish cycle.
	mediaFetchTimeout = 2 * time.Minute
)

// ErrMediaTooLarge reports a source file above the upload ceiling,
// distinguishable from transport failures.
var ErrMediaTooLarge = errors.New("source media exceeds the upload size ceiling")

// YoutubeAdapter uploads video through the resumable protocol: initiate the
// session, receive the upload URL, then PUT the bytes. The source binary is
// fetched first with an explicit timeout and size ceiling.
type YoutubeAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	UploadURL string
	Client    *http.Client
}

func NewYoutubeAdapter(clientID, clientSecret, redirectURI string) *YoutubeAdapter {
	return &YoutubeAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		UploadURL:    youtubeUploadURL,
		Client:       http.DefaultClient,
	}
}

func (a *YoutubeAdapter) Platform() string { return "youtube" }

func (a *YoutubeAdapter) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  a.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/youtube.upload",
		},
		Endpoint: google.Endpoint,
	}
}

func (a *YoutubeAdapter) AuthURL(state, verifier string) string {
	params := url.Values{}
	params.Add("client_id", a.ClientID)
	params.Add("redirect_uri", a.RedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", strings.Join(a.oauthConfig().Scopes, " "))
	params.Add("state", state)
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")
	return fmt.Sprintf("%s?%s", googleAuthURL, params.Encode())
}

func (a *YoutubeAdapter) checkConfig() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return &ConfigError{Platform: a.Platform(), Missing: "client id or secret"}
	}
	return nil
}

func (a *YoutubeAdapter) Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	token, err := a.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("google issued no refresh token; re-consent is required")
	}
	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

func (a *YoutubeAdapter) Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error) {
	if err := a.checkConfig(); err != nil {
		return nil, err
	}

	source := a.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: grant.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("google token refresh failed: %w", err)
	}
	refreshToken := token.RefreshToken
	if refreshToken == "" {
		refreshToken = grant.RefreshToken
	}
	return &TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (a *YoutubeAdapter) Profile(ctx context.Context, accessToken string) (*AccountProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v1/userinfo", nil)
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

	var info googleUserInfo
	if err := decodeJSON(resp, &info); err != nil {
		return nil, err
	}
	return &AccountProfile{AccountID: info.ID, AccountName: info.Name, AccountType: "profile"}, nil
}

// IsDirectFileURL rejects watch/share page URLs; the upload needs the media
// bytes, not a player page.
func IsDirectFileURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" || strings.HasSuffix(host, "youtube.com") {
		return false
	}
	p := strings.ToLower(u.Path)
	if strings.Contains(p, "/watch") || strings.Contains(p, "/share") {
		return false
	}
	return true
}

func (a *YoutubeAdapter) Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error) {
	mediaURL, ok := firstPublicMediaURL(req.MediaURLs)
	if !ok {
		return nil, &ValidationError{Reason: "youtube requires a publicly reachable video file URL"}
	}
	if !IsDirectFileURL(mediaURL) {
		return nil, &ValidationError{Reason: "youtube upload needs a direct media file URL, not a watch or share link"}
	}

	media, contentType, err := a.fetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	uploadURL, err := a.initiateUpload(ctx, req.Content, creds.AccessToken, contentType, int64(len(media)))
	if err != nil {
		return nil, err
	}

	return a.uploadBytes(ctx, uploadURL, creds.AccessToken, contentType, media)
}

// fetchMedia downloads the source with a hard timeout and size ceiling.
// Reading one byte past the ceiling fails closed with ErrMediaTooLarge.
func (a *YoutubeAdapter) fetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, mediaFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("error fetching source media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "source media fetch failed"}
	}
	if resp.ContentLength > MaxUploadBytes {
		return nil, "", ErrMediaTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("error reading source media: %w", err)
	}
	if len(body) > MaxUploadBytes {
		return nil, "", ErrMediaTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "video/mp4"
	}
	return body, contentType, nil
}

// initiateUpload opens a resumable session and returns the session's upload
// URL from the Location header.
func (a *YoutubeAdapter) initiateUpload(ctx context.Context, content, accessToken, contentType string, size int64) (string, error) {
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(content),
			Description: content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return "", fmt.Errorf("error marshalling metadata: %w", err)
	}

	initURL := a.UploadURL + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", contentType)
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	uploadURL := resp.Header.Get("Location")
	if uploadURL == "" {
		return "", &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "no upload URL returned for resumable session"}
	}
	return uploadURL, nil
}

func (a *YoutubeAdapter) uploadBytes(ctx context.Context, uploadURL, accessToken, contentType string, media []byte) (*PublishResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(media))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(media))

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var uploaded youtube.Video
	if err := decodeJSON(resp, &uploaded); err != nil {
		return nil, err
	}
	if uploaded.Id == "" {
		return nil, &ProviderError{Platform: a.Platform(), StatusCode: resp.StatusCode, Message: "no video id returned"}
	}
	return &PublishResult{PlatformPostID: uploaded.Id}, nil
}

func videoTitle(content string) string {
	line := content
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	runes := []rune(strings.TrimSpace(line))
	if len(runes) > 100 {
		runes = runes[:100]
	}
	if len(runes) == 0 {
		return "Untitled upload"
	}
	return string(runes)
}
