package checkpoint

import (
	"context"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/questiongen"
	"github.com/feedbreak/feedbreak/internal/store"
)

// GeneratedQuestion is the outcome of GenerateQuestion.
type GeneratedQuestion struct {
	Question *store.Question

	// Fallback is true when the generic question was stored because no
	// generator succeeded.
	Fallback bool
}

// GenerateQuestion produces a question personalised for the user and the
// video, and appends it to the video's content. It always yields a
// question; generator failures fall back to the generic prompt.
func (s *Service) GenerateQuestion(ctx context.Context, deviceID, videoID string) (*GeneratedQuestion, error) {
	user, err := s.GetUser(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, wrapStore("generate question", err)
	}
	content, err := s.store.GetContent(ctx, video.ContentID)
	if err != nil {
		return nil, wrapStore("generate question", err)
	}
	existing, err := s.store.ContentQuestions(ctx, content.ID)
	if err != nil {
		return nil, wrapStore("generate question", err)
	}
	prior := make([]string, 0, len(existing))
	for _, q := range existing {
		prior = append(prior, q.Prompt)
	}

	input := questiongen.Input{
		Topic:            video.Title,
		AudienceLevel:    content.Audience,
		SourceMaterial:   video.Description,
		ExpectedConcepts: video.ExpectedConcepts,
		Learner: questiongen.Learner{
			Name:           user.Name,
			Age:            user.Age,
			Interests:      user.Interests,
			EducationLevel: user.EducationLevel,
		},
		PriorQuestions: prior,
	}
	res := s.generator.Generate(ctx, input)
	if res.Fallback {
		s.log.Warn("using fallback question", "device_id", deviceID, "video_id", videoID, "error", res.Err)
	}

	difficulty := res.Question.Difficulty
	if difficulty == 0 {
		difficulty = content.Difficulty
	}
	stored := &store.Question{
		ContentID:        content.ID,
		Prompt:           res.Question.Prompt,
		ExpectedConcepts: res.Question.ExpectedConcepts,
		Difficulty:       difficulty,
		Points:           DefaultQuestionPoints,
		GeneratedBy:      res.Question.GeneratedBy,
		Active:           true,
	}
	err = s.store.WithTx(ctx, func(q store.Querier) error {
		order, err := q.NextQuestionOrder(ctx, content.ID)
		if err != nil {
			return err
		}
		stored.OrderIndex = order
		return q.CreateQuestion(ctx, stored)
	})
	if err != nil {
		return nil, wrapStore("generate question", err)
	}
	return &GeneratedQuestion{Question: stored, Fallback: res.Fallback}, nil
}

// lookupQuestion returns the question and the reference material an answer
// to it is judged against.
func (s *Service) lookupQuestion(ctx context.Context, questionID, videoID string) (*store.Question, string, error) {
	if questionID == "" {
		return nil, "", apperr.Invalid("question_id", "must not be empty")
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, "", wrapStore("lookup question", err)
	}
	if videoID != "" {
		v, err := s.store.GetVideo(ctx, videoID)
		if err != nil {
			return nil, "", wrapStore("lookup question", err)
		}
		return q, reference(v.Title, v.Description), nil
	}
	c, err := s.store.GetContent(ctx, q.ContentID)
	if err != nil {
		return nil, "", wrapStore("lookup question", err)
	}
	return q, reference(c.Title, c.Description), nil
}

func reference(title, description string) string {
	switch {
	case title == "":
		return description
	case description == "":
		return title
	default:
		return title + "\n" + description
	}
}
