package checkpoint

import (
	"context"

	"github.com/feedbreak/feedbreak/internal/media"
	"github.com/feedbreak/feedbreak/internal/store"
)

// VideoView is a video with its playable media.
type VideoView struct {
	Video *store.Video
	Media *media.Media

	// Static is true when the resolver failed and only derived URLs are
	// known.
	Static bool
}

// ResolveVideo returns the video with its media. Resolver metadata that
// differs from the stored title or duration is written back.
func (s *Service) ResolveVideo(ctx context.Context, videoID string) (*VideoView, error) {
	v, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, wrapStore("resolve video", err)
	}
	res := s.media.Resolve(ctx, v.ExternalID)
	m := res.Media

	if !res.Static && needsRefresh(v, m) {
		err := s.store.WithTx(ctx, func(q store.Querier) error {
			return q.UpdateVideoMetadata(ctx, v.ID, m.Title, m.DurationSeconds)
		})
		if err != nil {
			s.log.Warn("video metadata refresh failed", "video_id", v.ID, "error", err)
		} else {
			if m.Title != "" {
				v.Title = m.Title
			}
			if m.DurationSeconds > 0 {
				v.DurationSeconds = m.DurationSeconds
			}
		}
	}
	return &VideoView{Video: v, Media: m, Static: res.Static}, nil
}

func needsRefresh(v *store.Video, m *media.Media) bool {
	return (m.Title != "" && m.Title != v.Title) ||
		(m.DurationSeconds > 0 && m.DurationSeconds != v.DurationSeconds)
}
