package questiongen

import "fmt"

// Validator checks a generated question before it is returned.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier, e.g. "structural" or "dedup".
	Name() string

	// Validate returns nil if q passes.
	Validate(q *Question, input Input) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator string
	Message   string
	Retryable bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks that required fields are present and within
// length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question, _ Input) *ValidationError {
	switch {
	case q.Prompt == "":
		return &ValidationError{Validator: v.Name(), Message: "question_text is empty", Retryable: true}
	case len(q.Prompt) > 500:
		return &ValidationError{Validator: v.Name(), Message: "question_text exceeds 500 characters", Retryable: true}
	case q.Difficulty != 0 && (q.Difficulty < 1 || q.Difficulty > 5):
		return &ValidationError{Validator: v.Name(), Message: "difficulty must be between 1 and 5", Retryable: true}
	}
	for _, c := range q.ExpectedConcepts {
		if c == "" {
			return &ValidationError{Validator: v.Name(), Message: "concepts contain an empty entry", Retryable: true}
		}
	}
	return nil
}

// DedupValidator rejects a question that repeats one of the prior questions.
type DedupValidator struct{}

func (v *DedupValidator) Name() string { return "dedup" }

func (v *DedupValidator) Validate(q *Question, input Input) *ValidationError {
	norm := normalizePrompt(q.Prompt)
	for _, prior := range input.PriorQuestions {
		if normalizePrompt(prior) == norm {
			return &ValidationError{
				Validator: v.Name(),
				Message:   "question repeats a prior question",
				Retryable: true,
			}
		}
	}
	return nil
}
