package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorURN(t *testing.T) {
	tests := []struct {
		accountID   string
		accountType string
		want        string
	}{
		{"abc123", "profile", "urn:li:person:abc123"},
		{"77889", "page", "urn:li:organization:77889"},
		{"urn:li:person:xyz", "profile", "urn:li:person:xyz"},
		{"urn:li:organization:42", "page", "urn:li:organization:42"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, AuthorURN(tt.accountID, tt.accountType))
	}
}

func TestLinkedinPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/ugcPosts", r.URL.Path)
		require.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		require.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))

		var post linkedinUGCPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&post))
		require.Equal(t, "urn:li:person:abc", post.Author)
		require.Equal(t, "PUBLISHED", post.LifecycleState)
		require.Equal(t, "PUBLIC", post.Visibility.MemberNetworkVisibility)
		require.Equal(t, "NONE", post.SpecificContent.ShareContent.ShareMediaCategory)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:ugcPost:12345"}`))
	}))
	defer server.Close()

	a := NewLinkedinAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	result, err := a.Publish(context.Background(), PublishRequest{Content: "professional update"},
		Credentials{AccountID: "abc", AccountType: "profile", AccessToken: "li-token"})
	require.NoError(t, err)
	require.Equal(t, "urn:li:ugcPost:12345", result.PlatformPostID)
}

func TestLinkedinPublishImageCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var post linkedinUGCPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&post))
		require.Equal(t, "IMAGE", post.SpecificContent.ShareContent.ShareMediaCategory)
		require.Len(t, post.SpecificContent.ShareContent.Media, 1)
		require.Equal(t, "https://cdn.example.com/pic.jpg", post.SpecificContent.ShareContent.Media[0].OriginalURL)

		w.Header().Set("X-Restli-Id", "urn:li:ugcPost:67890")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a := NewLinkedinAdapter("id", "secret", "http://localhost/cb")
	a.BaseURL = server.URL

	result, err := a.Publish(context.Background(),
		PublishRequest{Content: "with media", MediaURLs: []string{"https://cdn.example.com/pic.jpg"}},
		Credentials{AccountID: "org-1", AccountType: "page", AccessToken: "li-token"})
	require.NoError(t, err)
	require.NotEmpty(t, result.PlatformPostID)
}
