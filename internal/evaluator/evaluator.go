package evaluator

import (
	"context"
	"math"

	"github.com/feedbreak/feedbreak/internal/store"
)

// PassThreshold is the minimum score that counts as passing.
const PassThreshold = 0.6

// Evaluator scores a free-text answer to a checkpoint question.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (*Result, error)
}

// Request is the input to an evaluation.
type Request struct {
	AnswerText string

	// ReferenceMaterial is the video title and description the answer is
	// judged against.
	ReferenceMaterial string
	ExpectedConcepts  []string
	QuestionText      string
}

// Result is a scored answer. Passed is always Score >= PassThreshold.
type Result struct {
	Score              float64
	Passed             bool
	ConceptsIdentified []string
	ConceptsMissing    []string
	Feedback           string

	// Degraded is true when the neutral fallback was returned instead of a
	// real evaluation.
	Degraded bool

	// Err is the *apperr.DependencyError behind a degraded result. Nil
	// when no evaluator is configured.
	Err error
}

// Evaluation converts r to the stored form.
func (r *Result) Evaluation() *store.Evaluation {
	return &store.Evaluation{
		Score:              r.Score,
		Passed:             r.Passed,
		ConceptsIdentified: r.ConceptsIdentified,
		ConceptsMissing:    r.ConceptsMissing,
		Feedback:           r.Feedback,
	}
}

// newResult clamps score into [0,1] and derives Passed from it. NaN
// scores as 0.
func newResult(score float64, identified, missing []string, feedback string) *Result {
	switch {
	case math.IsNaN(score), score < 0:
		score = 0
	case score > 1:
		score = 1
	}
	if identified == nil {
		identified = []string{}
	}
	if missing == nil {
		missing = []string{}
	}
	return &Result{
		Score:              score,
		Passed:             score >= PassThreshold,
		ConceptsIdentified: identified,
		ConceptsMissing:    missing,
		Feedback:           feedback,
	}
}
