package llm

import "context"

// Purpose labels what an LLM call was for on its request event.
type Purpose string

const (
	PurposeQuestionGen Purpose = "question-gen"
	PurposeAnswerEval  Purpose = "answer-eval"
	PurposeUnknown     Purpose = "unknown"
)

type purposeKey struct{}

// WithPurpose tags ctx so WithLogging can attribute the call.
func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey{}, p)
}

// PurposeFrom returns the tag set by WithPurpose, or PurposeUnknown.
func PurposeFrom(ctx context.Context) Purpose {
	if p, ok := ctx.Value(purposeKey{}).(Purpose); ok && p != "" {
		return p
	}
	return PurposeUnknown
}
