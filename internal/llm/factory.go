package llm

import (
	"context"
	"fmt"

	"github.com/feedbreak/feedbreak/internal/logger"
	"github.com/feedbreak/feedbreak/internal/store"
)

// NewProvider builds the configured provider. Calls flow
// retry -> logging -> provider, so every attempt is its own event. A nil
// eventRepo skips event logging.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		// Offline answers are deterministic; retrying them is pointless.
		if eventRepo != nil {
			return WithLogging(NewOfflineProvider(), eventRepo, log), nil
		}
		return NewOfflineProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if eventRepo != nil {
		base = WithLogging(base, eventRepo, log)
	}
	return WithRetry(base, cfg.Retry), nil
}

// NewProviderFromEnv builds a provider from the environment. It returns
// (nil, nil) when none is configured so callers fall back to the keyword
// evaluator and the generic question.
func NewProviderFromEnv(ctx context.Context, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	cfg, ok := ResolveConfig()
	if !ok {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewProvider(ctx, cfg, eventRepo, log)
}
