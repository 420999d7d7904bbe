package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublicMediaURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/pic.jpg", true},
		{"http://cdn.example.com/pic.jpg", true},
		{"data:image/png;base64,iVBORw0KGgo=", false},
		{"http://localhost/pic.jpg", false},
		{"http://127.0.0.1:9000/pic.jpg", false},
		{"ftp://example.com/pic.jpg", false},
		{"", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, publicMediaURL(tt.url), tt.url)
	}
}

func TestFirstPublicMediaURL(t *testing.T) {
	got, ok := firstPublicMediaURL([]string{
		"data:image/png;base64,aaaa",
		"https://cdn.example.com/pic.jpg",
		"https://cdn.example.com/other.jpg",
	})
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/pic.jpg", got)

	_, ok = firstPublicMediaURL([]string{"data:image/png;base64,aaaa"})
	require.False(t, ok)

	_, ok = firstPublicMediaURL(nil)
	require.False(t, ok)
}

func TestDetectMediaKindByExtension(t *testing.T) {
	// Known extensions never trigger a network fetch: the client would fail.
	client := &http.Client{Transport: failingTransport{}}

	require.Equal(t, mediaKindVideo, detectMediaKind(context.Background(), client, "https://cdn.example.com/clip.mp4"))
	require.Equal(t, mediaKindVideo, detectMediaKind(context.Background(), client, "https://cdn.example.com/clip.MOV"))
	require.Equal(t, mediaKindImage, detectMediaKind(context.Background(), client, "https://cdn.example.com/pic.jpeg"))
	require.Equal(t, mediaKindImage, detectMediaKind(context.Background(), client, "https://cdn.example.com/pic.png?size=large"))
}

func TestDetectMediaKindSniffsChunkedBody(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	// The signature arrives in two flushed chunks; sniffing must not stop
	// at the first short read.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngHeader[:2])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(20 * time.Millisecond)
		w.Write(pngHeader[2:])
	}))
	defer server.Close()

	kind := detectMediaKind(context.Background(), server.Client(), server.URL+"/media")
	require.Equal(t, mediaKindImage, kind)
}

type failingTransport struct{}

func (failingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	panic("unexpected network call")
}
