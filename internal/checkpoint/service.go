// Package checkpoint is the application layer around the progress tracker.
// It takes device ids from the transport, consults the question generator,
// answer evaluator and media resolver outside of store transactions, and
// publishes domain events after commits.
package checkpoint

import (
	"context"
	"errors"
	"strings"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/evaluator"
	"github.com/feedbreak/feedbreak/internal/events"
	"github.com/feedbreak/feedbreak/internal/logger"
	"github.com/feedbreak/feedbreak/internal/media"
	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/questiongen"
	"github.com/feedbreak/feedbreak/internal/store"
)

// DefaultQuestionPoints is the score weight of generated questions.
const DefaultQuestionPoints = 10

// Options holds the optional collaborators of a Service.
type Options struct {
	// Generator defaults to a guard with no generators, which always yields
	// the fallback question.
	Generator *questiongen.Guarded

	// Evaluator defaults to the keyword evaluator.
	Evaluator *evaluator.Guarded

	// Media defaults to static URLs.
	Media *media.BestEffort

	// Events defaults to a disabled publisher.
	Events events.Publisher

	Logger *logger.Logger
}

// Service exposes the checkpoint flow keyed by device id.
type Service struct {
	store     progress.ContentStore
	tracker   *progress.Tracker
	generator *questiongen.Guarded
	evaluator *evaluator.Guarded
	media     *media.BestEffort
	events    events.Publisher
	log       *logger.Logger
}

// New wires a Service. store and tracker are required.
func New(s progress.ContentStore, tracker *progress.Tracker, opts Options) (*Service, error) {
	if s == nil || tracker == nil {
		return nil, errors.New("checkpoint: store and tracker are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	svc := &Service{
		store:     s,
		tracker:   tracker,
		generator: opts.Generator,
		evaluator: opts.Evaluator,
		media:     opts.Media,
		events:    opts.Events,
		log:       log.With("service", "Checkpoint"),
	}
	if svc.generator == nil {
		svc.generator = questiongen.NewGuarded(0, log)
	}
	if svc.evaluator == nil {
		svc.evaluator = evaluator.NewGuarded(evaluator.NewKeywordEvaluator(), 0, log)
	}
	if svc.media == nil {
		svc.media = media.NewBestEffort(nil, 0, log)
	}
	if svc.events == nil {
		pub, err := events.NewEventPublisher("", log)
		if err != nil {
			return nil, err
		}
		svc.events = pub
	}
	return svc, nil
}

// Tracker returns the underlying tracker.
func (s *Service) Tracker() *progress.Tracker { return s.tracker }

// UpsertUser creates the user for the profile's device id or updates the
// existing one. created reports which happened.
func (s *Service) UpsertUser(ctx context.Context, p store.UserProfile) (user *store.User, created bool, err error) {
	if strings.TrimSpace(p.DeviceID) == "" {
		return nil, false, apperr.Invalid("device_id", "must not be empty")
	}
	err = s.store.WithTx(ctx, func(q store.Querier) error {
		existing, err := q.FindUserByDeviceID(ctx, p.DeviceID)
		if err != nil {
			return err
		}
		if existing == nil {
			if p.CheckpointInterval == 0 {
				p.CheckpointInterval = s.tracker.Config().DefaultInterval
			}
			user, err = q.CreateUser(ctx, p)
			created = true
			return err
		}
		user, err = q.UpdateUserProfile(ctx, existing.ID, p)
		return err
	})
	if err != nil {
		return nil, false, wrapStore("upsert user", err)
	}
	if created {
		s.log.Info("user created", "device_id", p.DeviceID, "user_id", user.ID)
	}
	return user, created, nil
}

// GetUser returns the user for a device id.
func (s *Service) GetUser(ctx context.Context, deviceID string) (*store.User, error) {
	u, err := s.store.FindUserByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, wrapStore("get user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user", deviceID)
	}
	return u, nil
}

// ReportWatch records a watch and publishes the resulting events. When a
// checkpoint became due the result carries the question to ask.
func (s *Service) ReportWatch(ctx context.Context, deviceID, videoID string, completed bool) (*progress.WatchResult, error) {
	res, err := s.tracker.RecordWatch(ctx, deviceID, videoID, completed)
	if err != nil {
		return nil, err
	}

	s.publish("watch.recorded", func() error {
		return s.events.PublishWatchRecorded(ctx,
			events.NewWatchRecordedEvent(res.UserID, res.VideoID, res.ContentID, res.WatchedCount, res.Counted))
	})
	if res.ShouldTriggerCheckpoint {
		questionID := ""
		if res.Question != nil {
			questionID = res.Question.ID
		}
		s.log.Info("checkpoint triggered",
			"user_id", res.UserID, "watched_count", res.WatchedCount, "interval", res.Interval, "question_id", questionID)
		s.publish("checkpoint.triggered", func() error {
			return s.events.PublishCheckpointTriggered(ctx,
				events.NewCheckpointTriggeredEvent(res.UserID, res.ContentID, questionID, res.WatchedCount, res.Interval))
		})
	}
	return res, nil
}

// NextQuestion returns the next unanswered question, or nil when all are
// answered.
func (s *Service) NextQuestion(ctx context.Context, deviceID, contentID string) (*store.Question, error) {
	return s.tracker.NextQuestion(ctx, deviceID, contentID)
}

// WatchCount returns the user's watch count, optionally per content.
func (s *Service) WatchCount(ctx context.Context, deviceID, contentID string) (int64, error) {
	return s.tracker.WatchCount(ctx, deviceID, contentID)
}

// CheckpointState returns the user's checkpoint state.
func (s *Service) CheckpointState(ctx context.Context, deviceID string) (progress.State, error) {
	return s.tracker.CheckpointState(ctx, deviceID)
}

func (s *Service) publish(key string, fn func() error) {
	if err := fn(); err != nil {
		s.log.Warn("event publish failed", "routing_key", key, "error", err)
	}
}

// wrapStore keeps domain errors and reports anything else as a store
// failure.
func wrapStore(op string, err error) error {
	if apperr.IsNotFound(err) || apperr.IsValidation(err) || apperr.IsDuplicate(err) || apperr.IsRetryable(err) {
		return err
	}
	return &apperr.StoreError{Op: op, Err: err}
}
