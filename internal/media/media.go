// Package media resolves external video references into playback metadata.
package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Media is the playable form of a video.
type Media struct {
	ExternalID      string `json:"external_id"`
	PlaybackURL     string `json:"playback_url"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Title           string `json:"title,omitempty"`
}

// Resolver looks up media metadata for an external video id.
type Resolver interface {
	Resolve(ctx context.Context, externalID string) (*Media, error)
}

// WatchURL is the canonical YouTube page for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// ThumbnailURL is the high resolution still for id.
func ThumbnailURL(id string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", url.PathEscape(id))
}

// ExtractVideoID returns the YouTube id in s. It accepts bare ids and
// youtu.be, watch?v=, embed/ and shorts/ URLs. Unrecognized input is
// returned trimmed.
func ExtractVideoID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "/?") {
		return s
	}

	raw := s
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return s
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	path := strings.Trim(u.Path, "/")

	switch {
	case host == "youtu.be":
		return firstSegment(path)
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"embed/", "shorts/", "v/", "live/"} {
			if strings.HasPrefix(path, prefix) {
				return firstSegment(strings.TrimPrefix(path, prefix))
			}
		}
	}
	return s
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
