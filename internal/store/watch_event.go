package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

var watchColumnNames = []string{"id", "sequence", "user_id", "video_id", "completed", "watched_at"}

// InsertWatchEvent appends a watch event, assigning its id and sequence.
func (c conn) InsertWatchEvent(ctx context.Context, e *WatchEvent) error {
	seq, err := nextSequence(ctx, c.ex)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now()
	}
	e.WatchedAt = e.WatchedAt.UTC()
	e.Sequence = seq

	q := builder.Insert(watchTable).
		Columns(watchColumnNames...).
		Values(e.ID, e.Sequence, e.UserID, e.VideoID, e.Completed, e.WatchedAt)
	if _, err := c.exec(ctx, q); err != nil {
		return fmt.Errorf("insert watch event: %w", err)
	}
	return nil
}

// FindWatchEvent returns the latest watch of the video by the user, or nil.
func (c conn) FindWatchEvent(ctx context.Context, userID, videoID string) (*WatchEvent, error) {
	sel := builder.Select(watchColumnNames...).
		From(entsql.Table(watchTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("video_id", videoID))).
		OrderBy(entsql.Desc("sequence")).
		Limit(1)
	var e *WatchEvent
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		e = &WatchEvent{}
		return rows.Scan(&e.ID, &e.Sequence, &e.UserID, &e.VideoID, &e.Completed, &e.WatchedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("query watch event: %w", err)
	}
	return e, nil
}

// RefreshWatchEvent updates an existing watch in place. Used when repeat
// watches collapse into one row. Completion is sticky: an incomplete
// repeat never clears an earlier completed watch.
func (c conn) RefreshWatchEvent(ctx context.Context, id string, completed bool, at time.Time) error {
	n, err := c.exec(ctx, builder.Update(watchTable).
		Set("completed", entsql.Expr("completed OR ?", completed)).
		Set("watched_at", at.UTC()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("refresh watch event: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("watch event", id)
	}
	return nil
}

// CountWatchEvents counts the user's watch events, optionally restricted to
// videos of one content.
func (c conn) CountWatchEvents(ctx context.Context, userID, contentID string) (int64, error) {
	w := entsql.Table(watchTable).As("w")
	sel := builder.Select(entsql.Count("*")).From(w)
	preds := []*entsql.Predicate{entsql.EQ(w.C("user_id"), userID)}
	if contentID != "" {
		v := entsql.Table(videosTable).As("v")
		sel.Join(v).On(w.C("video_id"), v.C("id"))
		preds = append(preds, entsql.EQ(v.C("content_id"), contentID))
	}
	sel.Where(entsql.And(preds...))

	n, err := c.scalar(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("count watch events: %w", err)
	}
	return n, nil
}
