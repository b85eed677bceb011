package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

var contentColumns = []string{
	"id", "title", "description", "audience", "category", "difficulty",
	"order_index", "active", "created_at", "updated_at",
}

var videoColumns = []string{
	"id", "content_id", "external_id", "title", "description", "duration_seconds",
	"checkpoint_interval", "order_index", "expected_concepts", "view_count",
	"active", "created_at", "updated_at",
}

var questionColumns = []string{
	"id", "content_id", "prompt", "order_index", "expected_concepts",
	"difficulty", "points", "generated_by", "active", "created_at",
}

func scanContent(rows *entsql.Rows) (*Content, error) {
	var ct Content
	err := rows.Scan(&ct.ID, &ct.Title, &ct.Description, &ct.Audience, &ct.Category,
		&ct.Difficulty, &ct.OrderIndex, &ct.Active, &ct.CreatedAt, &ct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	return &ct, nil
}

func scanVideo(rows *entsql.Rows) (*Video, error) {
	var (
		v        Video
		concepts sql.NullString
	)
	err := rows.Scan(&v.ID, &v.ContentID, &v.ExternalID, &v.Title, &v.Description,
		&v.DurationSeconds, &v.CheckpointInterval, &v.OrderIndex, &concepts,
		&v.ViewCount, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan video: %w", err)
	}
	v.ExpectedConcepts = decodeStrings(concepts.String)
	return &v, nil
}

func scanQuestion(rows *entsql.Rows) (*Question, error) {
	var (
		q        Question
		concepts sql.NullString
	)
	err := rows.Scan(&q.ID, &q.ContentID, &q.Prompt, &q.OrderIndex, &concepts,
		&q.Difficulty, &q.Points, &q.GeneratedBy, &q.Active, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.ExpectedConcepts = decodeStrings(concepts.String)
	return &q, nil
}

// CreateContent inserts ct, assigning an id and timestamps when unset.
func (c conn) CreateContent(ctx context.Context, ct *Content) error {
	if strings.TrimSpace(ct.Title) == "" {
		return apperr.Invalid("title", "must not be empty")
	}
	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ct.CreatedAt, ct.UpdatedAt = now, now
	q := builder.Insert(contentsTable).
		Columns(contentColumns...).
		Values(ct.ID, ct.Title, ct.Description, ct.Audience, ct.Category, ct.Difficulty,
			ct.OrderIndex, ct.Active, now, now)
	if _, err := c.exec(ctx, q); err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

func (c conn) GetContent(ctx context.Context, id string) (*Content, error) {
	var ct *Content
	q := builder.Select(contentColumns...).
		From(entsql.Table(contentsTable)).
		Where(entsql.EQ("id", id)).
		Limit(1)
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		var err error
		ct, err = scanContent(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	if ct == nil {
		return nil, apperr.NotFound("content", id)
	}
	return ct, nil
}

func (c conn) ListContents(ctx context.Context, activeOnly bool) ([]*Content, error) {
	q := builder.Select(contentColumns...).
		From(entsql.Table(contentsTable)).
		OrderBy("order_index", "created_at", "id")
	if activeOnly {
		q.Where(entsql.EQ("active", true))
	}
	var out []*Content
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		ct, err := scanContent(rows)
		if err != nil {
			return err
		}
		out = append(out, ct)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return out, nil
}

// SetContentActive soft-deletes or restores a content.
func (c conn) SetContentActive(ctx context.Context, id string, active bool) error {
	n, err := c.exec(ctx, builder.Update(contentsTable).
		Set("active", active).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("content", id)
	}
	return nil
}

// DeleteContent hard-deletes a content. Videos and questions cascade, and
// their watch and response events with them.
func (c conn) DeleteContent(ctx context.Context, id string) error {
	n, err := c.exec(ctx, builder.Delete(contentsTable).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("content", id)
	}
	return nil
}

// CreateVideo inserts v, assigning an id and timestamps when unset.
func (c conn) CreateVideo(ctx context.Context, v *Video) error {
	if strings.TrimSpace(v.ExternalID) == "" {
		return apperr.Invalid("external_id", "must not be empty")
	}
	if v.CheckpointInterval < 0 {
		return apperr.Invalid("checkpoint_interval", "must be positive, got %d", v.CheckpointInterval)
	}
	if _, err := c.GetContent(ctx, v.ContentID); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	q := builder.Insert(videosTable).
		Columns(videoColumns...).
		Values(v.ID, v.ContentID, v.ExternalID, v.Title, v.Description, v.DurationSeconds,
			v.CheckpointInterval, v.OrderIndex, encodeStrings(v.ExpectedConcepts), v.ViewCount,
			v.Active, now, now)
	if _, err := c.exec(ctx, q); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (c conn) GetVideo(ctx context.Context, id string) (*Video, error) {
	var v *Video
	q := builder.Select(videoColumns...).
		From(entsql.Table(videosTable)).
		Where(entsql.EQ("id", id)).
		Limit(1)
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		var err error
		v, err = scanVideo(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query video: %w", err)
	}
	if v == nil {
		return nil, apperr.NotFound("video", id)
	}
	return v, nil
}

func (c conn) ContentVideos(ctx context.Context, contentID string) ([]*Video, error) {
	q := builder.Select(videoColumns...).
		From(entsql.Table(videosTable)).
		Where(entsql.EQ("content_id", contentID)).
		OrderBy("order_index", "created_at", "id")
	var out []*Video
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		v, err := scanVideo(rows)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return out, nil
}

// UpdateVideoMetadata refreshes resolver-provided fields. Empty title and
// zero duration leave the stored values alone.
func (c conn) UpdateVideoMetadata(ctx context.Context, id, title string, durationSeconds int) error {
	upd := builder.Update(videosTable).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id))
	if title != "" {
		upd.Set("title", title)
	}
	if durationSeconds > 0 {
		upd.Set("duration_seconds", durationSeconds)
	}
	n, err := c.exec(ctx, upd)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("video", id)
	}
	return nil
}

func (c conn) IncrementVideoViews(ctx context.Context, id string) error {
	n, err := c.exec(ctx, builder.Update(videosTable).
		Add("view_count", 1).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("increment video views: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("video", id)
	}
	return nil
}

// CreateQuestion inserts q, assigning an id and timestamp when unset.
func (c conn) CreateQuestion(ctx context.Context, q *Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return apperr.Invalid("prompt", "must not be empty")
	}
	if _, err := c.GetContent(ctx, q.ContentID); err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.GeneratedBy == "" {
		q.GeneratedBy = GeneratedManual
	}
	q.CreatedAt = time.Now().UTC()
	ins := builder.Insert(questionsTable).
		Columns(questionColumns...).
		Values(q.ID, q.ContentID, q.Prompt, q.OrderIndex, encodeStrings(q.ExpectedConcepts),
			q.Difficulty, q.Points, q.GeneratedBy, q.Active, q.CreatedAt)
	if _, err := c.exec(ctx, ins); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (c conn) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q *Question
	sel := builder.Select(questionColumns...).
		From(entsql.Table(questionsTable)).
		Where(entsql.EQ("id", id)).
		Limit(1)
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		var err error
		q, err = scanQuestion(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query question: %w", err)
	}
	if q == nil {
		return nil, apperr.NotFound("question", id)
	}
	return q, nil
}

// ContentQuestions returns the content's questions ordered by order index.
func (c conn) ContentQuestions(ctx context.Context, contentID string) ([]*Question, error) {
	sel := builder.Select(questionColumns...).
		From(entsql.Table(questionsTable)).
		Where(entsql.EQ("content_id", contentID)).
		OrderBy("order_index", "created_at", "id")
	var out []*Question
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		q, err := scanQuestion(rows)
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return out, nil
}

// NextQuestionOrder returns the order index following the content's last
// question.
func (c conn) NextQuestionOrder(ctx context.Context, contentID string) (int, error) {
	n, err := c.scalar(ctx, builder.Select("COALESCE(MAX(order_index), -1) + 1").
		From(entsql.Table(questionsTable)).
		Where(entsql.EQ("content_id", contentID)))
	if err != nil {
		return 0, fmt.Errorf("next question order: %w", err)
	}
	return int(n), nil
}

// NextUnansweredQuestion returns the first active question the user has no
// response for, or nil when every question has been answered. An empty
// contentID searches all active contents in content order.
func (c conn) NextUnansweredQuestion(ctx context.Context, userID, contentID string) (*Question, error) {
	q := entsql.Table(questionsTable).As("q")
	ct := entsql.Table(contentsTable).As("c")
	r := entsql.Table(responsesTable).As("r")

	answered := builder.Select(r.C("question_id")).
		From(r).
		Where(entsql.EQ(r.C("user_id"), userID))

	preds := []*entsql.Predicate{
		entsql.EQ(q.C("active"), true),
		entsql.EQ(ct.C("active"), true),
		entsql.NotIn(q.C("id"), answered),
	}
	if contentID != "" {
		preds = append(preds, entsql.EQ(q.C("content_id"), contentID))
	}

	sel := builder.Select(qualify(q, questionColumns)...).
		From(q).
		Join(ct).On(q.C("content_id"), ct.C("id")).
		Where(entsql.And(preds...)).
		OrderBy(ct.C("order_index"), ct.C("created_at"), q.C("order_index"), q.C("created_at"), q.C("id")).
		Limit(1)

	var next *Question
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		var err error
		next, err = scanQuestion(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("next unanswered question: %w", err)
	}
	return next, nil
}
