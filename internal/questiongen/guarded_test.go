package questiongen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/store"
)

type stubGenerator struct {
	q     *Question
	err   error
	delay time.Duration
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, _ Input) (*Question, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.q, s.err
}

func TestGuarded_FirstSuccessWins(t *testing.T) {
	first := &stubGenerator{err: errors.New("webhook down")}
	second := &stubGenerator{q: &Question{Prompt: "Why is the sky blue?", GeneratedBy: store.GeneratedLLM}}

	res := NewGuarded(time.Second, nil, first, second).Generate(context.Background(), testInput())
	assert.False(t, res.Fallback)
	assert.Equal(t, "Why is the sky blue?", res.Question.Prompt)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestGuarded_FallbackOnFailure(t *testing.T) {
	failing := &stubGenerator{err: errors.New("boom")}

	res := NewGuarded(time.Second, nil, failing).Generate(context.Background(), testInput())
	assert.True(t, res.Fallback)
	assert.True(t, apperr.IsDependency(res.Err), "got %v", res.Err)
	var dep *apperr.DependencyError
	if assert.True(t, errors.As(res.Err, &dep)) {
		assert.Equal(t, DependencyName, dep.Dependency)
		assert.EqualError(t, dep.Err, "boom")
	}
	assert.Equal(t, FallbackPrompt, res.Question.Prompt)
	assert.Equal(t, store.GeneratedFallback, res.Question.GeneratedBy)
	assert.Equal(t, testInput().ExpectedConcepts, res.Question.ExpectedConcepts)
}

func TestGuarded_FallbackOnTimeout(t *testing.T) {
	slow := &stubGenerator{q: &Question{Prompt: "late"}, delay: time.Second}
	never := &stubGenerator{q: &Question{Prompt: "unreached"}}

	start := time.Now()
	res := NewGuarded(20*time.Millisecond, nil, slow, never).Generate(context.Background(), testInput())
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.True(t, apperr.IsDependency(res.Err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, never.calls)
}

func TestGuarded_EmptyQuestionIsAFailure(t *testing.T) {
	res := NewGuarded(time.Second, nil, &stubGenerator{}).Generate(context.Background(), testInput())
	assert.True(t, res.Fallback)
	assert.True(t, apperr.IsDependency(res.Err))
}

func TestGuarded_NoGenerators(t *testing.T) {
	res := NewGuarded(0, nil, nil).Generate(context.Background(), testInput())
	assert.True(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Equal(t, FallbackPrompt, res.Question.Prompt)
}
