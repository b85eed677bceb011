// Package config loads process configuration from the environment, after
// reading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/feedbreak/feedbreak/internal/progress"
)

// Evaluator strategies.
const (
	EvaluatorLLM     = "llm"
	EvaluatorKeyword = "keyword"
)

type Config struct {
	DBPath     string
	ListenAddr string
	GinMode    string
	LogMode    string

	CORSOrigins []string

	DuplicateWatchPolicy string
	IntervalSource       string
	LenientUsers         bool
	CountIncomplete      bool
	UniqueResponses      bool
	DefaultInterval      int

	// Evaluator is "llm" (falls back to keyword when no LLM is configured)
	// or "keyword".
	Evaluator string

	GeneratorTimeout time.Duration
	EvaluatorTimeout time.Duration
	MediaTimeout     time.Duration
	MediaCacheTTL    time.Duration

	WebhookURL    string
	YouTubeAPIKey string
	RedisAddr     string
	RabbitMQURI   string
}

// Load reads the given .env files (default ".env"), ignoring missing ones,
// and builds a Config from the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		DBPath:     getEnvOrDefault("FEEDBREAK_DB", ""),
		ListenAddr: getEnvOrDefault("FEEDBREAK_ADDR", ":8080"),
		GinMode:    getEnvOrDefault("GIN_MODE", "release"),
		LogMode:    getEnvOrDefault("FEEDBREAK_LOG_MODE", "prod"),

		CORSOrigins: splitList(os.Getenv("FEEDBREAK_CORS_ORIGINS")),

		DuplicateWatchPolicy: getEnvOrDefault("FEEDBREAK_DUPLICATE_WATCHES", string(progress.AppendWatches)),
		IntervalSource:       getEnvOrDefault("FEEDBREAK_INTERVAL_SOURCE", string(progress.IntervalVideoFirst)),
		LenientUsers:         p.bool("FEEDBREAK_LENIENT_USERS", false),
		CountIncomplete:      p.bool("FEEDBREAK_COUNT_INCOMPLETE", true),
		UniqueResponses:      p.bool("FEEDBREAK_UNIQUE_RESPONSES", true),
		DefaultInterval:      p.int("FEEDBREAK_DEFAULT_INTERVAL", progress.DefaultInterval),

		Evaluator: strings.ToLower(getEnvOrDefault("FEEDBREAK_EVALUATOR", EvaluatorLLM)),

		GeneratorTimeout: p.duration("FEEDBREAK_GENERATOR_TIMEOUT", 20*time.Second),
		EvaluatorTimeout: p.duration("FEEDBREAK_EVALUATOR_TIMEOUT", 30*time.Second),
		MediaTimeout:     p.duration("FEEDBREAK_MEDIA_TIMEOUT", 5*time.Second),
		MediaCacheTTL:    p.duration("FEEDBREAK_MEDIA_CACHE_TTL", 24*time.Hour),

		WebhookURL:    strings.TrimSpace(os.Getenv("N8N_WEBHOOK_URL")),
		YouTubeAPIKey: strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RabbitMQURI:   strings.TrimSpace(os.Getenv("RABBITMQ_URI")),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := c.Tracker(); err != nil {
		return err
	}
	switch c.Evaluator {
	case EvaluatorLLM, EvaluatorKeyword:
	default:
		return fmt.Errorf("FEEDBREAK_EVALUATOR must be %q or %q, got %q", EvaluatorLLM, EvaluatorKeyword, c.Evaluator)
	}
	return nil
}

// Tracker returns the progress tracker policies.
func (c *Config) Tracker() (progress.TrackerConfig, error) {
	tc := progress.DefaultTrackerConfig()
	tc.DuplicateWatchPolicy = progress.DuplicateWatchPolicy(c.DuplicateWatchPolicy)
	tc.IntervalSource = progress.IntervalSource(c.IntervalSource)
	tc.LenientUserCreation = c.LenientUsers
	tc.CountIncomplete = c.CountIncomplete
	tc.UniqueResponses = c.UniqueResponses
	tc.DefaultInterval = c.DefaultInterval
	if c.DefaultInterval <= 0 {
		return tc, fmt.Errorf("FEEDBREAK_DEFAULT_INTERVAL must be positive, got %d", c.DefaultInterval)
	}
	if err := tc.Validate(); err != nil {
		return tc, err
	}
	return tc, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parser collects the first malformed value.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return i
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
