// Package progress records watch and response events, keeps each user's
// watched count, and decides when a comprehension checkpoint is due.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/store"
)

// ContentStore is the persistence the tracker needs. *store.Store
// satisfies it.
type ContentStore interface {
	store.Querier
	WithTx(ctx context.Context, fn func(q store.Querier) error) error
}

// WatchResult is the outcome of RecordWatch.
type WatchResult struct {
	UserID       string
	VideoID      string
	ContentID    string
	WatchedCount int64
	Interval     int

	// Counted is false when a repeat watch collapsed into an existing row
	// and the count did not advance.
	Counted bool

	ShouldTriggerCheckpoint bool
	State                   State

	// Question is the first unanswered question of the watched video's
	// content when State is StateCheckpointDue.
	Question *store.Question
}

// Answer is a user's answer to a question.
type Answer struct {
	Kind     store.AnswerKind
	Text     string
	AudioRef string
}

// ResponseInput describes a response to record.
type ResponseInput struct {
	DeviceID   string
	QuestionID string
	VideoID    string // optional
	Answer     Answer

	// Evaluation is stored inline when set; otherwise the response is
	// stored pending.
	Evaluation *store.Evaluation
}

// Tracker owns the watch and response event logs and the checkpoint state
// machine.
type Tracker struct {
	store ContentStore
	cfg   TrackerConfig
}

// NewTracker creates a Tracker. The config is validated and defaulted.
func NewTracker(s ContentStore, cfg TrackerConfig) (*Tracker, error) {
	if s == nil {
		return nil, errors.New("progress: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}
	return &Tracker{store: s, cfg: cfg}, nil
}

// Config returns the tracker's effective configuration.
func (t *Tracker) Config() TrackerConfig {
	return t.cfg
}

// Passed reports whether score meets the pass threshold.
func (t *Tracker) Passed(score float64) bool {
	return score >= t.cfg.PassThreshold
}

// RecordWatch records that the user watched the video and reports whether
// a checkpoint is due. The event, the count increment and the state change
// commit together or not at all.
func (t *Tracker) RecordWatch(ctx context.Context, deviceID, videoID string, completed bool) (*WatchResult, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, apperr.Invalid("device_id", "must not be empty")
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, apperr.Invalid("video_id", "must not be empty")
	}
	if !completed && !t.cfg.CountIncomplete {
		return nil, apperr.Invalid("completed", "incomplete watches are not counted")
	}

	now := t.cfg.Now()
	var res *WatchResult
	err := t.store.WithTx(ctx, func(q store.Querier) error {
		user, err := t.resolveUser(ctx, q, deviceID, t.cfg.LenientUserCreation)
		if err != nil {
			return err
		}
		video, err := q.GetVideo(ctx, videoID)
		if err != nil {
			return err
		}

		res = &WatchResult{
			UserID:    user.ID,
			VideoID:   video.ID,
			ContentID: video.ContentID,
			Interval:  ResolveInterval(t.cfg, user, video),
		}

		var existing *store.WatchEvent
		if t.cfg.DuplicateWatchPolicy == CollapseWatches {
			if existing, err = q.FindWatchEvent(ctx, user.ID, video.ID); err != nil {
				return err
			}
		}
		if existing != nil {
			if err := q.RefreshWatchEvent(ctx, existing.ID, completed, now); err != nil {
				return err
			}
			res.WatchedCount = user.WatchedCount
		} else {
			ev := &store.WatchEvent{UserID: user.ID, VideoID: video.ID, Completed: completed, WatchedAt: now}
			if err := q.InsertWatchEvent(ctx, ev); err != nil {
				return err
			}
			if res.WatchedCount, err = q.IncrementWatchedCount(ctx, user.ID, now); err != nil {
				return err
			}
			res.Counted = true
		}

		if err := q.IncrementVideoViews(ctx, video.ID); err != nil {
			return err
		}

		res.ShouldTriggerCheckpoint = res.Counted && ShouldTrigger(res.WatchedCount, res.Interval)
		if res.ShouldTriggerCheckpoint {
			if res.Question, err = q.NextUnansweredQuestion(ctx, user.ID, video.ContentID); err != nil {
				return err
			}
		}
		res.State = nextWatchState(ParseState(user.CheckpointState), res.ShouldTriggerCheckpoint, res.Question != nil)
		return q.SetCheckpointState(ctx, user.ID, string(res.State), now)
	})
	if err != nil {
		return nil, classify("record watch", err)
	}
	return res, nil
}

// NextQuestion returns the lowest-ordered question the user has not
// answered, scoped to one content when contentID is set. It returns nil,
// nil when every question has been answered.
func (t *Tracker) NextQuestion(ctx context.Context, deviceID, contentID string) (*store.Question, error) {
	user, err := t.resolveUser(ctx, t.store, deviceID, false)
	if err != nil {
		return nil, classify("next question", err)
	}
	if contentID != "" {
		if _, err := t.store.GetContent(ctx, contentID); err != nil {
			return nil, classify("next question", err)
		}
	}
	q, err := t.store.NextUnansweredQuestion(ctx, user.ID, contentID)
	if err != nil {
		return nil, classify("next question", err)
	}
	return q, nil
}

// RecordResponse stores the user's answer, with its evaluation inline when
// one is supplied. A due checkpoint becomes answered; other states are
// kept.
func (t *Tracker) RecordResponse(ctx context.Context, in ResponseInput) (*store.ResponseEvent, error) {
	if strings.TrimSpace(in.DeviceID) == "" {
		return nil, apperr.Invalid("device_id", "must not be empty")
	}
	if strings.TrimSpace(in.QuestionID) == "" {
		return nil, apperr.Invalid("question_id", "must not be empty")
	}
	if err := validateAnswer(in.Answer); err != nil {
		return nil, err
	}
	var ev *store.Evaluation
	if in.Evaluation != nil {
		norm, err := t.normalize(*in.Evaluation)
		if err != nil {
			return nil, err
		}
		ev = &norm
	}

	now := t.cfg.Now()
	var resp *store.ResponseEvent
	err := t.store.WithTx(ctx, func(q store.Querier) error {
		user, err := t.resolveUser(ctx, q, in.DeviceID, t.cfg.LenientUserCreation)
		if err != nil {
			return err
		}
		question, err := q.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			return err
		}
		if in.VideoID != "" {
			if _, err := q.GetVideo(ctx, in.VideoID); err != nil {
				return err
			}
		}
		if t.cfg.UniqueResponses {
			prior, err := q.FindResponse(ctx, user.ID, question.ID)
			if err != nil {
				return err
			}
			if prior != nil {
				return &apperr.DuplicateError{Entity: "response", Key: prior.ID}
			}
		}

		resp = &store.ResponseEvent{
			UserID:     user.ID,
			QuestionID: question.ID,
			VideoID:    in.VideoID,
			Kind:       in.Answer.Kind,
			Text:       in.Answer.Text,
			AudioRef:   in.Answer.AudioRef,
			Evaluation: ev,
			CreatedAt:  now,
		}
		if err := q.InsertResponseEvent(ctx, resp); err != nil {
			return err
		}
		next := nextResponseState(ParseState(user.CheckpointState))
		return q.SetCheckpointState(ctx, user.ID, string(next), now)
	})
	if err != nil {
		return nil, classify("record response", err)
	}
	return resp, nil
}

// AttachEvaluation stores a late evaluation on a pending response.
func (t *Tracker) AttachEvaluation(ctx context.Context, responseID string, ev store.Evaluation) (*store.ResponseEvent, error) {
	norm, err := t.normalize(ev)
	if err != nil {
		return nil, err
	}
	now := t.cfg.Now()
	var resp *store.ResponseEvent
	err = t.store.WithTx(ctx, func(q store.Querier) error {
		if err := q.AttachEvaluation(ctx, responseID, norm, now); err != nil {
			return err
		}
		resp, err = q.GetResponse(ctx, responseID)
		return err
	})
	if err != nil {
		return nil, classify("attach evaluation", err)
	}
	return resp, nil
}

// UpdateResponse replaces the answer of one of the user's responses and
// returns it to pending evaluation.
func (t *Tracker) UpdateResponse(ctx context.Context, deviceID, responseID string, answer Answer) (*store.ResponseEvent, error) {
	if err := validateAnswer(answer); err != nil {
		return nil, err
	}
	now := t.cfg.Now()
	var resp *store.ResponseEvent
	err := t.store.WithTx(ctx, func(q store.Querier) error {
		user, err := t.resolveUser(ctx, q, deviceID, false)
		if err != nil {
			return err
		}
		existing, err := q.GetResponse(ctx, responseID)
		if err != nil {
			return err
		}
		if existing.UserID != user.ID {
			return apperr.NotFound("response", responseID)
		}
		if err := q.ReplaceResponseAnswer(ctx, responseID, answer.Kind, answer.Text, answer.AudioRef, now); err != nil {
			return err
		}
		resp, err = q.GetResponse(ctx, responseID)
		return err
	})
	if err != nil {
		return nil, classify("update response", err)
	}
	return resp, nil
}

// PendingResponses returns up to limit responses awaiting evaluation,
// oldest first.
func (t *Tracker) PendingResponses(ctx context.Context, limit int) ([]*store.ResponseEvent, error) {
	out, err := t.store.PendingResponses(ctx, limit)
	if err != nil {
		return nil, classify("pending responses", err)
	}
	return out, nil
}

// WatchCount returns the number of recorded watches for the user,
// optionally restricted to one content.
func (t *Tracker) WatchCount(ctx context.Context, deviceID, contentID string) (int64, error) {
	user, err := t.resolveUser(ctx, t.store, deviceID, false)
	if err != nil {
		return 0, classify("watch count", err)
	}
	if contentID != "" {
		if _, err := t.store.GetContent(ctx, contentID); err != nil {
			return 0, classify("watch count", err)
		}
	}
	n, err := t.store.CountWatchEvents(ctx, user.ID, contentID)
	if err != nil {
		return 0, classify("watch count", err)
	}
	return n, nil
}

// CheckpointState returns the user's current checkpoint state.
func (t *Tracker) CheckpointState(ctx context.Context, deviceID string) (State, error) {
	user, err := t.resolveUser(ctx, t.store, deviceID, false)
	if err != nil {
		return "", classify("checkpoint state", err)
	}
	return ParseState(user.CheckpointState), nil
}

func (t *Tracker) resolveUser(ctx context.Context, q store.Querier, deviceID string, create bool) (*store.User, error) {
	user, err := q.FindUserByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	if !create {
		return nil, apperr.NotFound("user", deviceID)
	}
	return q.CreateUser(ctx, store.UserProfile{DeviceID: deviceID, CheckpointInterval: t.cfg.DefaultInterval})
}

// normalize validates the score and derives passed from it.
func (t *Tracker) normalize(ev store.Evaluation) (store.Evaluation, error) {
	if math.IsNaN(ev.Score) || ev.Score < 0 || ev.Score > 1 {
		return ev, apperr.Invalid("score", "must be in [0,1], got %v", ev.Score)
	}
	ev.Passed = t.Passed(ev.Score)
	return ev, nil
}

func validateAnswer(a Answer) error {
	switch a.Kind {
	case store.AnswerText:
		if strings.TrimSpace(a.Text) == "" {
			return apperr.Invalid("text", "must not be empty")
		}
	case store.AnswerAudio:
		if strings.TrimSpace(a.AudioRef) == "" {
			return apperr.Invalid("audio_ref", "must not be empty")
		}
	default:
		return apperr.Invalid("kind", "unknown answer kind %q", a.Kind)
	}
	return nil
}

// classify passes domain errors through and reports anything else as a
// retryable store failure.
func classify(op string, err error) error {
	if apperr.IsNotFound(err) || apperr.IsValidation(err) || apperr.IsDuplicate(err) || apperr.IsRetryable(err) {
		return err
	}
	return &apperr.StoreError{Op: op, Err: err}
}
