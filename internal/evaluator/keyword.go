package evaluator

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// KeywordEvaluator scores answers by expected-concept coverage. It needs no
// network and serves as the offline evaluator.
type KeywordEvaluator struct {
	// MinWords is the answer length that earns a passing score when the
	// question has no expected concepts.
	MinWords int
}

// NewKeywordEvaluator returns a KeywordEvaluator with default settings.
func NewKeywordEvaluator() *KeywordEvaluator {
	return &KeywordEvaluator{MinWords: 8}
}

// Evaluate scores the fraction of expected concepts found in the answer.
// A concept matches when each of its words prefixes some answer word, so
// "plant" matches "plants".
func (k *KeywordEvaluator) Evaluate(_ context.Context, req Request) (*Result, error) {
	words := tokenize(req.AnswerText)
	if len(words) == 0 {
		return newResult(0, nil, req.ExpectedConcepts, "Your answer was empty. Try describing what the video showed."), nil
	}

	if len(req.ExpectedConcepts) == 0 {
		if len(words) >= k.MinWords {
			return newResult(PassThreshold, nil, nil, "Thanks for the explanation. Keep connecting what you watch to your own examples."), nil
		}
		return newResult(0.3, nil, nil, "Try to explain in a few more sentences what you learned."), nil
	}

	var identified, missing []string
	for _, concept := range req.ExpectedConcepts {
		if containsConcept(words, concept) {
			identified = append(identified, concept)
		} else {
			missing = append(missing, concept)
		}
	}

	score := float64(len(identified)) / float64(len(req.ExpectedConcepts))
	return newResult(score, identified, missing, keywordFeedback(identified, missing)), nil
}

func keywordFeedback(identified, missing []string) string {
	switch {
	case len(missing) == 0:
		return "Great answer! You covered every key idea from the video."
	case len(identified) == 0:
		return fmt.Sprintf("Good try. Watch the video again and look for: %s.", strings.Join(missing, ", "))
	default:
		return fmt.Sprintf("Nice work on %s. Next time also mention %s.",
			strings.Join(identified, ", "), strings.Join(missing, ", "))
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsConcept(words []string, concept string) bool {
	parts := tokenize(concept)
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		found := false
		for _, w := range words {
			if strings.HasPrefix(w, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
