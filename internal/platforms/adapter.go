// Package platforms holds one publish adapter per external service. Each
// adapter translates a generic publish request into that provider's protocol
// and owns the provider's token handshake. Adapters are side-effect
// isolated: they never touch storage and a failure in one never affects
// another.
package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Credentials struct {
	AccountID   string
	AccountType string // page or profile
	AccessToken string // decrypted by the caller
}

type PublishRequest struct {
	Content   string
	MediaURLs []string
	LinkURL   string
	Location  string
}

type PublishResult struct {
	PlatformPostID string
}

// TokenGrant is the outcome of a code exchange or refresh, already upgraded
// to the longest-lived token the provider offers.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // empty when the provider issues none
	ExpiresAt    time.Time
}

// AccountProfile identifies the provider-side account a grant belongs to.
type AccountProfile struct {
	AccountID   string
	AccountName string
	AccountType string
	// PageToken is set when the provider issues a separate page-scoped
	// token that must be stored instead of the user token.
	PageToken string
}

// Adapter is the per-platform capability: build the consent URL, exchange
// and refresh tokens, identify the account, and publish. The verifier is
// the PKCE code verifier minted per handshake; AuthURL and Exchange must
// see the same one. Platforms without PKCE ignore it.
type Adapter interface {
	Platform() string
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*TokenGrant, error)
	Refresh(ctx context.Context, grant *TokenGrant) (*TokenGrant, error)
	Profile(ctx context.Context, accessToken string) (*AccountProfile, error)
	Publish(ctx context.Context, req PublishRequest, creds Credentials) (*PublishResult, error)
}

// ErrRefreshUnsupported is returned by platforms whose long-lived tokens
// cannot be refreshed; callers keep the stored token as-is.
var ErrRefreshUnsupported = errors.New("platform does not support token refresh")

// ValidationError reports bad input detected before any provider call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ProviderError carries the provider's own rejection verbatim.
type ProviderError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s rejected the request (status %d): %s", e.Platform, e.StatusCode, e.Message)
}

// ConfigError reports missing client credentials for a provider, detected
// eagerly before any network call.
type ConfigError struct {
	Platform string
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Platform, e.Missing)
}

// Registry is the closed set of configured adapters keyed by platform name.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Platform()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

func decodeJSON(resp *http.Response, v interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}
