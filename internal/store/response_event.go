package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

var responseColumnNames = []string{
	"id", "sequence", "user_id", "question_id", "video_id", "answer_kind",
	"answer_text", "audio_ref", "status", "score", "passed",
	"concepts_identified", "concepts_missing", "feedback", "evaluated_at",
	"created_at", "updated_at",
}

func scanResponse(rows *entsql.Rows) (*ResponseEvent, error) {
	var (
		r           ResponseEvent
		videoID     sql.NullString
		score       sql.NullFloat64
		passed      sql.NullBool
		identified  sql.NullString
		missing     sql.NullString
		evaluatedAt sql.NullTime
		kind        string
		status      string
		feedback    string
	)
	err := rows.Scan(&r.ID, &r.Sequence, &r.UserID, &r.QuestionID, &videoID, &kind,
		&r.Text, &r.AudioRef, &status, &score, &passed,
		&identified, &missing, &feedback, &evaluatedAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan response: %w", err)
	}
	r.VideoID = videoID.String
	r.Kind = AnswerKind(kind)
	r.Status = EvaluationStatus(status)
	if r.Status == StatusEvaluated && score.Valid {
		r.Evaluation = &Evaluation{
			Score:              score.Float64,
			Passed:             passed.Bool,
			ConceptsIdentified: decodeStrings(identified.String),
			ConceptsMissing:    decodeStrings(missing.String),
			Feedback:           feedback,
		}
	}
	if evaluatedAt.Valid {
		r.EvaluatedAt = evaluatedAt.Time
	}
	return &r, nil
}

// InsertResponseEvent stores a response, assigning its id and sequence.
// A non-nil Evaluation is stored inline and marks the response evaluated.
func (c conn) InsertResponseEvent(ctx context.Context, e *ResponseEvent) error {
	seq, err := nextSequence(ctx, c.ex)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.CreatedAt
	e.Sequence = seq

	var (
		score, passed, identified, missing, evaluatedAt any
		feedback                                        string
	)
	e.Status = StatusPending
	if ev := e.Evaluation; ev != nil {
		e.Status = StatusEvaluated
		e.EvaluatedAt = e.CreatedAt
		score, passed = ev.Score, ev.Passed
		identified, missing = encodeStrings(ev.ConceptsIdentified), encodeStrings(ev.ConceptsMissing)
		feedback = ev.Feedback
		evaluatedAt = e.EvaluatedAt
	}

	q := builder.Insert(responsesTable).
		Columns(responseColumnNames...).
		Values(e.ID, e.Sequence, e.UserID, e.QuestionID, nullString(e.VideoID), string(e.Kind),
			e.Text, e.AudioRef, string(e.Status), score, passed,
			identified, missing, feedback, evaluatedAt,
			e.CreatedAt, e.UpdatedAt)
	if _, err := c.exec(ctx, q); err != nil {
		return fmt.Errorf("insert response event: %w", err)
	}
	return nil
}

func (c conn) GetResponse(ctx context.Context, id string) (*ResponseEvent, error) {
	r, err := c.findResponse(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("response", id)
	}
	return r, nil
}

// FindResponse returns the user's latest response to the question, or nil.
func (c conn) FindResponse(ctx context.Context, userID, questionID string) (*ResponseEvent, error) {
	return c.findResponse(ctx, entsql.And(entsql.EQ("user_id", userID), entsql.EQ("question_id", questionID)))
}

func (c conn) findResponse(ctx context.Context, pred *entsql.Predicate) (*ResponseEvent, error) {
	sel := builder.Select(responseColumnNames...).
		From(entsql.Table(responsesTable)).
		Where(pred).
		OrderBy(entsql.Desc("sequence")).
		Limit(1)
	var r *ResponseEvent
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		var err error
		r, err = scanResponse(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query response: %w", err)
	}
	return r, nil
}

// ReplaceResponseAnswer overwrites the answer and clears any evaluation,
// returning the response to pending.
func (c conn) ReplaceResponseAnswer(ctx context.Context, id string, kind AnswerKind, text, audioRef string, at time.Time) error {
	n, err := c.exec(ctx, builder.Update(responsesTable).
		Set("answer_kind", string(kind)).
		Set("answer_text", text).
		Set("audio_ref", audioRef).
		Set("status", string(StatusPending)).
		SetNull("score").
		SetNull("passed").
		SetNull("concepts_identified").
		SetNull("concepts_missing").
		Set("feedback", "").
		SetNull("evaluated_at").
		Set("updated_at", at.UTC()).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("replace response answer: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("response", id)
	}
	return nil
}

// AttachEvaluation stores a late evaluation on a pending response. A
// response that is already evaluated yields a *apperr.DuplicateError.
func (c conn) AttachEvaluation(ctx context.Context, id string, ev Evaluation, at time.Time) error {
	n, err := c.exec(ctx, builder.Update(responsesTable).
		Set("status", string(StatusEvaluated)).
		Set("score", ev.Score).
		Set("passed", ev.Passed).
		Set("concepts_identified", encodeStrings(ev.ConceptsIdentified)).
		Set("concepts_missing", encodeStrings(ev.ConceptsMissing)).
		Set("feedback", ev.Feedback).
		Set("evaluated_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("status", string(StatusPending)))))
	if err != nil {
		return fmt.Errorf("attach evaluation: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := c.GetResponse(ctx, id); err != nil {
		return err
	}
	return &apperr.DuplicateError{Entity: "evaluation", Key: id}
}

// PendingResponses returns up to limit pending responses, oldest first.
func (c conn) PendingResponses(ctx context.Context, limit int) ([]*ResponseEvent, error) {
	sel := builder.Select(responseColumnNames...).
		From(entsql.Table(responsesTable)).
		Where(entsql.EQ("status", string(StatusPending))).
		OrderBy("sequence")
	if limit > 0 {
		sel.Limit(limit)
	}
	var out []*ResponseEvent
	err := c.each(ctx, sel, func(rows *entsql.Rows) error {
		r, err := scanResponse(rows)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pending responses: %w", err)
	}
	return out, nil
}
