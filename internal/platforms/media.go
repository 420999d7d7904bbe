package platforms

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

type mediaKind int

const (
	mediaKindUnknown mediaKind = iota
	mediaKindImage
	mediaKindVideo
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".m4v": {}, ".webm": {}, ".avi": {},
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

// publicMediaURL reports whether a media reference is a URL a provider can
// pull from: https, with a real host. Inline data URIs and local addresses
// are not reachable from the provider side.
func publicMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "" || host == "localhost" || strings.HasPrefix(host, "127.") || host == "::1" {
		return false
	}
	return true
}

// firstPublicMediaURL picks the first provider-reachable URL, if any.
func firstPublicMediaURL(urls []string) (string, bool) {
	for _, raw := range urls {
		if publicMediaURL(raw) {
			return raw, true
		}
	}
	return "", false
}

// detectMediaKind classifies a media URL as image or video. The extension is
// checked first; when it is ambiguous the first few bytes are fetched and
// matched against known file signatures.
func detectMediaKind(ctx context.Context, client *http.Client, mediaURL string) mediaKind {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return mediaKindUnknown
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if _, ok := videoExtensions[ext]; ok {
		return mediaKindVideo
	}
	if _, ok := imageExtensions[ext]; ok {
		return mediaKindImage
	}
	return sniffMediaKind(ctx, client, mediaURL)
}

func sniffMediaKind(ctx context.Context, client *http.Client, mediaURL string) mediaKind {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return mediaKindUnknown
	}
	req.Header.Set("Range", "bytes=0-261")

	resp, err := client.Do(req)
	if err != nil {
		return mediaKindUnknown
	}
	defer resp.Body.Close()

	// A single Read may return short on a chunked body; fill the buffer or
	// drain the body, whichever comes first.
	head := make([]byte, 262)
	n, _ := io.ReadFull(resp.Body, head)
	head = head[:n]

	if filetype.IsVideo(head) {
		return mediaKindVideo
	}
	if filetype.IsImage(head) {
		return mediaKindImage
	}
	return mediaKindUnknown
}
