package media

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeResolver reads title, duration and thumbnails from the YouTube
// Data API v3.
type YouTubeResolver struct {
	svc *youtube.Service
}

// NewYouTubeResolver creates a resolver authenticated with apiKey. Extra
// options (for example option.WithEndpoint in tests) are appended.
func NewYouTubeResolver(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeResolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube API key is required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTubeResolver{svc: svc}, nil
}

// Resolve fetches the video's snippet and content details.
func (r *YouTubeResolver) Resolve(ctx context.Context, externalID string) (*Media, error) {
	resp, err := r.svc.Videos.List([]string{"snippet", "contentDetails"}).
		Id(externalID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list %s: %w", externalID, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube video %s not found", externalID)
	}

	item := resp.Items[0]
	m := &Media{
		ExternalID:   externalID,
		PlaybackURL:  WatchURL(externalID),
		ThumbnailURL: ThumbnailURL(externalID),
	}
	if item.Snippet != nil {
		m.Title = item.Snippet.Title
		if t := bestThumbnail(item.Snippet.Thumbnails); t != "" {
			m.ThumbnailURL = t
		}
	}
	if item.ContentDetails != nil {
		d, err := ParseISODuration(item.ContentDetails.Duration)
		if err == nil {
			m.DurationSeconds = d
		}
	}
	return m, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as "PT1M30S" or
// "P1DT2H" into seconds.
func ParseISODuration(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	units := []int{86400, 3600, 60, 1}
	total := 0
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		total += n * unit
	}
	return total, nil
}
