package checkpoint

import (
	"context"
	"strings"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/evaluator"
	"github.com/feedbreak/feedbreak/internal/events"
	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/store"
)

// Submission is the outcome of an answer submission.
type Submission struct {
	Response *store.ResponseEvent

	// Degraded is true when the evaluator failed and the neutral
	// evaluation was stored.
	Degraded bool
}

// AnswerInput identifies what is being answered.
type AnswerInput struct {
	DeviceID   string
	QuestionID string
	VideoID    string // optional
}

// SubmitTextAnswer evaluates a text answer and records it with the
// evaluation inline.
func (s *Service) SubmitTextAnswer(ctx context.Context, in AnswerInput, text string) (*Submission, error) {
	if strings.TrimSpace(in.DeviceID) == "" {
		return nil, apperr.Invalid("device_id", "must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("text", "must not be empty")
	}
	question, ref, err := s.lookupQuestion(ctx, in.QuestionID, in.VideoID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotAnswered(ctx, in.DeviceID, question.ID); err != nil {
		return nil, err
	}

	result := s.evaluator.Evaluate(ctx, evaluator.Request{
		AnswerText:        text,
		ReferenceMaterial: ref,
		ExpectedConcepts:  question.ExpectedConcepts,
		QuestionText:      question.Prompt,
	})

	resp, err := s.tracker.RecordResponse(ctx, progress.ResponseInput{
		DeviceID:   in.DeviceID,
		QuestionID: question.ID,
		VideoID:    in.VideoID,
		Answer:     progress.Answer{Kind: store.AnswerText, Text: text},
		Evaluation: result.Evaluation(),
	})
	if err != nil {
		return nil, err
	}
	s.publishResponse(ctx, resp, result.Degraded)
	return &Submission{Response: resp, Degraded: result.Degraded}, nil
}

// SubmitAudioAnswer records an audio answer by reference. It stays pending
// since audio is not transcribed here.
func (s *Service) SubmitAudioAnswer(ctx context.Context, in AnswerInput, audioRef string) (*Submission, error) {
	resp, err := s.tracker.RecordResponse(ctx, progress.ResponseInput{
		DeviceID:   in.DeviceID,
		QuestionID: in.QuestionID,
		VideoID:    in.VideoID,
		Answer:     progress.Answer{Kind: store.AnswerAudio, AudioRef: audioRef},
	})
	if err != nil {
		return nil, err
	}
	s.publishResponse(ctx, resp, false)
	return &Submission{Response: resp}, nil
}

// CorrectAnswer replaces the text of one of the user's responses and
// re-evaluates it. A degraded re-evaluation leaves the response pending.
func (s *Service) CorrectAnswer(ctx context.Context, deviceID, responseID, text string) (*Submission, error) {
	resp, err := s.tracker.UpdateResponse(ctx, deviceID, responseID, progress.Answer{Kind: store.AnswerText, Text: text})
	if err != nil {
		return nil, err
	}
	scored, degraded, err := s.score(ctx, resp)
	if err != nil {
		return nil, err
	}
	if scored != nil {
		resp = scored
	}
	s.publishResponse(ctx, resp, degraded)
	return &Submission{Response: resp, Degraded: degraded}, nil
}

// ScoreSummary reports the outcome of ScorePending.
type ScoreSummary struct {
	Scored   int
	Skipped  int
	Degraded int
}

// ScorePending evaluates up to limit pending text responses, oldest first.
// Audio responses and degraded evaluations stay pending for a later run.
func (s *Service) ScorePending(ctx context.Context, limit int) (ScoreSummary, error) {
	var sum ScoreSummary
	pending, err := s.tracker.PendingResponses(ctx, limit)
	if err != nil {
		return sum, err
	}
	for _, resp := range pending {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if resp.Kind != store.AnswerText {
			sum.Skipped++
			continue
		}
		scored, degraded, err := s.score(ctx, resp)
		switch {
		case apperr.IsDuplicate(err) || apperr.IsNotFound(err):
			sum.Skipped++
		case err != nil:
			return sum, err
		case degraded:
			sum.Degraded++
		default:
			sum.Scored++
			s.publishResponse(ctx, scored, false)
		}
	}
	s.log.Info("scored pending responses", "scored", sum.Scored, "skipped", sum.Skipped, "degraded", sum.Degraded)
	return sum, nil
}

// score evaluates a pending text response and attaches the result. A
// degraded evaluation is not attached and scored is nil.
func (s *Service) score(ctx context.Context, resp *store.ResponseEvent) (scored *store.ResponseEvent, degraded bool, err error) {
	question, ref, err := s.lookupQuestion(ctx, resp.QuestionID, resp.VideoID)
	if err != nil {
		return nil, false, err
	}
	result := s.evaluator.Evaluate(ctx, evaluator.Request{
		AnswerText:        resp.Text,
		ReferenceMaterial: ref,
		ExpectedConcepts:  question.ExpectedConcepts,
		QuestionText:      question.Prompt,
	})
	if result.Degraded {
		return nil, true, nil
	}
	scored, err = s.tracker.AttachEvaluation(ctx, resp.ID, *result.Evaluation())
	if err != nil {
		return nil, false, err
	}
	return scored, false, nil
}

// checkNotAnswered fails early with a DuplicateError so a repeated answer
// does not cost an evaluation. The tracker repeats the check atomically.
func (s *Service) checkNotAnswered(ctx context.Context, deviceID, questionID string) error {
	if !s.tracker.Config().UniqueResponses {
		return nil
	}
	user, err := s.store.FindUserByDeviceID(ctx, deviceID)
	if err != nil {
		return wrapStore("check response", err)
	}
	if user == nil {
		if s.tracker.Config().LenientUserCreation {
			return nil
		}
		return apperr.NotFound("user", deviceID)
	}
	prior, err := s.store.FindResponse(ctx, user.ID, questionID)
	if err != nil {
		return wrapStore("check response", err)
	}
	if prior != nil {
		return &apperr.DuplicateError{Entity: "response", Key: prior.ID}
	}
	return nil
}

func (s *Service) publishResponse(ctx context.Context, resp *store.ResponseEvent, degraded bool) {
	e := events.NewResponseRecordedEvent(resp.ID, resp.UserID, resp.QuestionID, string(resp.Status))
	if resp.Evaluation != nil {
		e.WithScore(resp.Evaluation.Score, resp.Evaluation.Passed, degraded)
	}
	s.publish("response.recorded", func() error {
		return s.events.PublishResponseRecorded(ctx, e)
	})
}
