package media

import (
	"context"
	"fmt"
	"strings"
)

// StaticResolver derives URLs from the id alone. It never calls out and
// knows neither title nor duration.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, externalID string) (*Media, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return nil, fmt.Errorf("empty video id")
	}
	return &Media{
		ExternalID:   id,
		PlaybackURL:  WatchURL(id),
		ThumbnailURL: ThumbnailURL(id),
	}, nil
}
