package questiongen

import (
	"context"
	"errors"
	"time"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/logger"
)

// DefaultGuardTimeout bounds a guarded generation attempt.
const DefaultGuardTimeout = 20 * time.Second

// DependencyName labels generator failures in errors and logs.
const DependencyName = "question-generator"

var errEmptyQuestion = errors.New("generator returned no question")

// Result is the outcome of a guarded generation.
type Result struct {
	Question *Question

	// Fallback is true when the generic fallback question was used.
	Fallback bool

	// Err is an *apperr.DependencyError wrapping the last generator
	// failure. It is nil when no generator was configured.
	Err error
}

// Guarded tries each generator in order under a shared timeout and falls
// back to FallbackQuestion. It never fails to produce a question.
type Guarded struct {
	generators []Generator
	timeout    time.Duration
	log        *logger.Logger
}

// NewGuarded builds a guard over generators. Nil generators are skipped.
func NewGuarded(timeout time.Duration, log *logger.Logger, generators ...Generator) *Guarded {
	if timeout <= 0 {
		timeout = DefaultGuardTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	var gens []Generator
	for _, g := range generators {
		if g != nil {
			gens = append(gens, g)
		}
	}
	return &Guarded{generators: gens, timeout: timeout, log: log}
}

// Generate returns the first successful question or the fallback.
func (g *Guarded) Generate(ctx context.Context, input Input) Result {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var lastErr error
	for _, gen := range g.generators {
		q, err := gen.Generate(ctx, input)
		if err == nil && q != nil {
			return Result{Question: q}
		}
		if err == nil {
			err = errEmptyQuestion
		}
		lastErr = apperr.Dependency(DependencyName, err)
		g.log.Warn("question generator failed", "dependency", DependencyName, "topic", input.Topic, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Question: FallbackQuestion(input), Fallback: true, Err: lastErr}
}
