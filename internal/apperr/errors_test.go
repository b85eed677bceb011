package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFound("user", "dev-1"), IsNotFound},
		{"validation", Invalid("interval", "must be positive"), IsValidation},
		{"duplicate", &DuplicateError{Entity: "response", Key: "u/q"}, IsDuplicate},
		{"dependency", &DependencyError{Dependency: "evaluator", Err: errors.New("boom")}, IsDependency},
		{"store", &StoreError{Op: "record watch", Err: errors.New("locked")}, IsRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("wrapped %v not recognized", tt.err)
			}
		})
	}
}

func TestKindsAreDistinct(t *testing.T) {
	err := NotFound("video", "v1")
	if IsValidation(err) || IsDuplicate(err) || IsDependency(err) || IsRetryable(err) {
		t.Errorf("not-found error matched another kind")
	}
}

func TestMessages(t *testing.T) {
	if got := NotFound("user", "abc").Error(); got != `user "abc" not found` {
		t.Errorf("got %q", got)
	}
	if got := Invalid("score", "out of range: %v", 1.5).Error(); got != "validation: score: out of range: 1.5" {
		t.Errorf("got %q", got)
	}
}
