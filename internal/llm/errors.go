package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

// Kind classifies a provider failure.
type Kind int

const (
	// KindUnavailable covers network failures and 5xx answers.
	KindUnavailable Kind = iota
	// KindRateLimited is a 429. RetryAfter is set when the provider said.
	KindRateLimited
	// KindRejected is any other 4xx, e.g. a bad key or model name.
	KindRejected
	// KindInvalidResponse means the output failed the request schema.
	KindInvalidResponse
	// KindTruncated means the output hit MaxTokens.
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindRejected:
		return "request rejected"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "response truncated"
	default:
		return "unavailable"
	}
}

// Error is a failed provider call. errors.As also finds it as an
// *apperr.DependencyError, so callers outside this package can treat it
// like any other collaborator failure.
type Error struct {
	Kind       Kind
	Provider   string
	RetryAfter time.Duration

	// Content is the offending output for invalid or truncated responses.
	Content json.RawMessage

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm %s: %s", e.Provider, e.Kind)
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// As exposes e as an *apperr.DependencyError.
func (e *Error) As(target any) bool {
	dep, ok := target.(**apperr.DependencyError)
	if !ok {
		return false
	}
	*dep = &apperr.DependencyError{Dependency: "llm/" + e.Provider, Err: e}
	return true
}

// transient reports whether a retry may succeed.
func (e *Error) transient() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// fromStatus classifies an SDK error by the HTTP status it carried. A zero
// status means the request never got an answer.
func fromStatus(provider string, status int, err error) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Provider: provider, Err: err}
	case status >= 400 && status < 500:
		return &Error{Kind: KindRejected, Provider: provider, Err: err}
	default:
		return &Error{Kind: KindUnavailable, Provider: provider, Err: err}
	}
}
