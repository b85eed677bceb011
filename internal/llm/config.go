package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config selects one provider and carries the settings of all of them.
type Config struct {
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one call including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig shapes the backoff of WithRetry.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig picks small, cheap models: a checkpoint question or an
// answer assessment is a few hundred tokens.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderOpenAI,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-lite"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// providerEnv maps one provider onto its environment variables. Explicit
// settings use FEEDBREAK_<NAME>_API_KEY, _MODEL and _BASE_URL; discovery
// uses the vendor's conventional key variable.
type providerEnv struct {
	name      string
	vendorKey string
	set       func(c *Config, key, model, baseURL string)
	key       func(c Config) string
}

// providerEnvs is in discovery order.
var providerEnvs = []providerEnv{
	{
		name: ProviderGemini, vendorKey: "GEMINI_API_KEY",
		set: func(c *Config, key, model, _ string) {
			c.Gemini.APIKey = or(key, c.Gemini.APIKey)
			c.Gemini.Model = or(model, c.Gemini.Model)
		},
		key: func(c Config) string { return c.Gemini.APIKey },
	},
	{
		name: ProviderOpenAI, vendorKey: "OPENAI_API_KEY",
		set: func(c *Config, key, model, baseURL string) {
			c.OpenAI.APIKey = or(key, c.OpenAI.APIKey)
			c.OpenAI.Model = or(model, c.OpenAI.Model)
			c.OpenAI.BaseURL = or(baseURL, c.OpenAI.BaseURL)
		},
		key: func(c Config) string { return c.OpenAI.APIKey },
	},
	{
		name: ProviderAnthropic, vendorKey: "ANTHROPIC_API_KEY",
		set: func(c *Config, key, model, _ string) {
			c.Anthropic.APIKey = or(key, c.Anthropic.APIKey)
			c.Anthropic.Model = or(model, c.Anthropic.Model)
		},
		key: func(c Config) string { return c.Anthropic.APIKey },
	},
	{
		name: ProviderOpenRouter, vendorKey: "OPENROUTER_API_KEY",
		set: func(c *Config, key, model, baseURL string) {
			c.OpenRouter.APIKey = or(key, c.OpenRouter.APIKey)
			c.OpenRouter.Model = or(model, c.OpenRouter.Model)
			c.OpenRouter.BaseURL = or(baseURL, c.OpenRouter.BaseURL)
		},
		key: func(c Config) string { return c.OpenRouter.APIKey },
	},
}

func (p providerEnv) env(suffix string) string {
	return os.Getenv("FEEDBREAK_" + strings.ToUpper(p.name) + "_" + suffix)
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// ConfigFromEnv reads FEEDBREAK_LLM_PROVIDER, the per-provider
// FEEDBREAK_* settings, FEEDBREAK_LLM_TIMEOUT and
// FEEDBREAK_LLM_MAX_ATTEMPTS over the defaults. Malformed numbers and
// durations keep the default.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = or(os.Getenv("FEEDBREAK_LLM_PROVIDER"), cfg.Provider)
	for _, p := range providerEnvs {
		p.set(&cfg, p.env("API_KEY"), p.env("MODEL"), p.env("BASE_URL"))
	}
	if d, err := time.ParseDuration(os.Getenv("FEEDBREAK_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("FEEDBREAK_LLM_MAX_ATTEMPTS")); err == nil && n > 0 {
		cfg.Retry.MaxAttempts = n
	}
	return cfg
}

// ResolveConfig returns the FEEDBREAK_* configuration when a provider is
// named, otherwise whatever DiscoverConfig finds. A named provider is
// returned unvalidated so a missing key surfaces as an error rather than
// as a silent fallback.
func ResolveConfig() (cfg Config, ok bool) {
	if os.Getenv("FEEDBREAK_LLM_PROVIDER") != "" {
		return ConfigFromEnv(), true
	}
	return DiscoverConfig()
}

// DiscoverConfig picks the first provider whose vendor key variable is
// set, in the order Gemini, OpenAI, Anthropic, OpenRouter.
func DiscoverConfig() (Config, bool) {
	for _, p := range providerEnvs {
		if key := os.Getenv(p.vendorKey); key != "" {
			cfg := DefaultConfig()
			cfg.Provider = p.name
			p.set(&cfg, key, "", "")
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	for _, p := range providerEnvs {
		if p.name != c.Provider {
			continue
		}
		if p.key(c) == "" {
			return fmt.Errorf("FEEDBREAK_%s_API_KEY is required for the %s provider", strings.ToUpper(p.name), p.name)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider %q", c.Provider)
}
