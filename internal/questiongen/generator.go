package questiongen

import (
	"context"

	"github.com/feedbreak/feedbreak/internal/store"
)

// Generator produces a checkpoint question for a learner and a video.
type Generator interface {
	// Generate produces a single question for the given input.
	// All configured validators are run before returning.
	Generate(ctx context.Context, input Input) (*Question, error)
}

// Learner is the profile a question is personalised for.
type Learner struct {
	Name           string
	Age            int
	Interests      []string
	EducationLevel string
}

// Input holds everything needed to generate a question.
type Input struct {
	// Topic is usually the video title.
	Topic string

	// AudienceLevel is the content's audience tag, e.g. "high-school".
	AudienceLevel string

	// SourceMaterial is the video description or transcript excerpt.
	SourceMaterial string

	ExpectedConcepts []string
	Learner          Learner

	// PriorQuestions are prompts already stored for this content. Used for
	// deduplication in the prompt and by the DedupValidator.
	PriorQuestions []string
}

// Question is a generated checkpoint question.
type Question struct {
	Prompt           string
	ExpectedConcepts []string

	// Difficulty is the generator's self-assessed difficulty (1-5), or 0
	// when the source does not report one.
	Difficulty int

	// GeneratedBy is one of the store.Generated* values.
	GeneratedBy string
}

// FallbackPrompt is used whenever no generator produces a usable question.
const FallbackPrompt = "Explain in your own words what you learned in this video."

// FallbackQuestion returns the generic question for input.
func FallbackQuestion(input Input) *Question {
	return &Question{
		Prompt:           FallbackPrompt,
		ExpectedConcepts: input.ExpectedConcepts,
		GeneratedBy:      store.GeneratedFallback,
	}
}
