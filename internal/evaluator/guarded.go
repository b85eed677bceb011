package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/logger"
)

// DependencyName labels evaluator failures in errors and logs.
const DependencyName = "answer-evaluator"

var errEmptyResult = errors.New("evaluator returned no result")

// DefaultTimeout bounds a guarded evaluation.
const DefaultTimeout = 30 * time.Second

const (
	// FallbackScore is the neutral score used when evaluation fails.
	FallbackScore = 0.5

	// FallbackFeedback is shown when the answer could not be analyzed.
	FallbackFeedback = "Could not analyze your answer automatically. Please try again."
)

// Fallback returns the neutral evaluation for req: score 0.5, not passed,
// every expected concept missing.
func Fallback(req Request) *Result {
	missing := append([]string{}, req.ExpectedConcepts...)
	return &Result{
		Score:              FallbackScore,
		Passed:             false,
		ConceptsIdentified: []string{},
		ConceptsMissing:    missing,
		Feedback:           FallbackFeedback,
		Degraded:           true,
	}
}

func fallbackFor(req Request, err error) *Result {
	res := Fallback(req)
	res.Err = apperr.Dependency(DependencyName, err)
	return res
}

// Guarded bounds an Evaluator with a timeout and replaces any failure with
// the neutral fallback.
type Guarded struct {
	inner   Evaluator
	timeout time.Duration
	log     *logger.Logger
}

// NewGuarded wraps inner. A nil inner always degrades.
func NewGuarded(inner Evaluator, timeout time.Duration, log *logger.Logger) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Guarded{inner: inner, timeout: timeout, log: log}
}

// Evaluate never fails. The inner evaluator runs in its own goroutine so a
// call that ignores its context still cannot exceed the timeout.
func (g *Guarded) Evaluate(ctx context.Context, req Request) *Result {
	if g.inner == nil {
		return Fallback(req)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := g.inner.Evaluate(ctx, req)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if out.err == nil && out.res != nil {
			return out.res
		}
		if out.err == nil {
			out.err = errEmptyResult
		}
		res := fallbackFor(req, out.err)
		g.log.Warn("answer evaluation failed, using fallback", "dependency", DependencyName, "error", res.Err)
		return res
	case <-ctx.Done():
		res := fallbackFor(req, fmt.Errorf("timed out after %s: %w", g.timeout, ctx.Err()))
		g.log.Warn("answer evaluation timed out, using fallback", "dependency", DependencyName, "error", res.Err)
		return res
	}
}
