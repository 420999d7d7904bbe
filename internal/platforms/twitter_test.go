package platforms

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncateTweet(t *testing.T) {
	require.Equal(t, "short", TruncateTweet("short"))

	long := strings.Repeat("a", 300)
	require.Equal(t, strings.Repeat("a", 280), TruncateTweet(long))

	// Multi-byte runes count as one character each, not one byte.
	emoji := strings.Repeat("é", 300)
	got := TruncateTweet(emoji)
	require.Equal(t, 280, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got))

	exact := strings.Repeat("b", 280)
	require.Equal(t, exact, TruncateTweet(exact))
}

func TestTwitterPublish(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets", r.URL.Path)
		require.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotText = body.Text

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1801","text":"ok"}}`))
	}))
	defer server.Close()

	a := NewTwitterAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	result, err := a.Publish(context.Background(), PublishRequest{Content: strings.Repeat("x", 300)}, Credentials{AccessToken: "token-1"})
	require.NoError(t, err)
	require.Equal(t, "1801", result.PlatformPostID)
	require.Equal(t, 280, utf8.RuneCountInString(gotText))
}

func TestTwitterPublishProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"You are not permitted to create this Tweet"}`))
	}))
	defer server.Close()

	a := NewTwitterAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	_, err := a.Publish(context.Background(), PublishRequest{Content: "hi"}, Credentials{AccessToken: "token-1"})
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, http.StatusForbidden, provErr.StatusCode)
	require.Contains(t, provErr.Message, "not permitted")
}

func TestTwitterExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/oauth2/token", r.URL.Path)
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "verifier-xyz", r.Form.Get("code_verifier"))

		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":7200}`))
	}))
	defer server.Close()

	a := NewTwitterAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	grant, err := a.Exchange(context.Background(), "code-1", "verifier-xyz")
	require.NoError(t, err)
	require.Equal(t, "at", grant.AccessToken)
	require.Equal(t, "rt", grant.RefreshToken)
	require.False(t, grant.ExpiresAt.IsZero())
}

func TestTwitterAuthURLPKCE(t *testing.T) {
	a := NewTwitterAdapter("id", "secret", "http://localhost/cb")

	verifier := strings.Repeat("v", 43)
	u, err := url.Parse(a.AuthURL("state-1", verifier))
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "S256", q.Get("code_challenge_method"))

	sum := sha256.Sum256([]byte(verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), q.Get("code_challenge"))

	// A different verifier yields a different challenge.
	other, err := url.Parse(a.AuthURL("state-1", strings.Repeat("w", 43)))
	require.NoError(t, err)
	require.NotEqual(t, q.Get("code_challenge"), other.Query().Get("code_challenge"))
}
