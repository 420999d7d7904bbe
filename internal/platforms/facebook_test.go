package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFacebookPublishRequiresPage(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	a := NewFacebookAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	_, err := a.Publish(context.Background(), PublishRequest{Content: "hello"},
		Credentials{AccountID: "me", AccountType: "profile", AccessToken: "tok"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Contains(t, valErr.Reason, "Page")
	require.Zero(t, calls, "profile rejection must happen before any provider call")
}

func TestFacebookPublishToPageFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/page-1/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "hello world", r.Form.Get("message"))
		require.Equal(t, "page-token", r.Form.Get("access_token"))
		require.Equal(t, "https://example.com/article", r.Form.Get("link"))

		w.Write([]byte(`{"id":"page-1_555"}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	result, err := a.Publish(context.Background(),
		PublishRequest{Content: "hello world", LinkURL: "https://example.com/article"},
		Credentials{AccountID: "page-1", AccountType: "page", AccessToken: "page-token"})
	require.NoError(t, err)
	require.Equal(t, "page-1_555", result.PlatformPostID)
}

func TestFacebookPublishProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	_, err := a.Publish(context.Background(), PublishRequest{Content: "hi"},
		Credentials{AccountID: "page-1", AccountType: "page", AccessToken: "stale"})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Contains(t, provErr.Message, "Invalid OAuth access token")
}

func TestFacebookExchangeUpgradesToken(t *testing.T) {
	var grants []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)
		grants = append(grants, r.URL.Query().Get("grant_type"))

		if r.URL.Query().Get("grant_type") == "fb_exchange_token" {
			require.Equal(t, "short-tok", r.URL.Query().Get("fb_exchange_token"))
			w.Write([]byte(`{"access_token":"long-tok","token_type":"bearer","expires_in":5183944}`))
			return
		}
		w.Write([]byte(`{"access_token":"short-tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	grant, err := a.Exchange(context.Background(), "code-1", "")
	require.NoError(t, err)
	require.Equal(t, "long-tok", grant.AccessToken)
	require.Equal(t, []string{"", "fb_exchange_token"}, grants)
}

func TestFacebookRefreshUnsupported(t *testing.T) {
	a := NewFacebookAdapter("id", "secret", "http://localhost/cb")
	_, err := a.Refresh(context.Background(), &TokenGrant{})
	require.ErrorIs(t, err, ErrRefreshUnsupported)
}
