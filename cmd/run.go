package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedbreak/feedbreak/internal/checkpoint"
	"github.com/feedbreak/feedbreak/internal/config"
	"github.com/feedbreak/feedbreak/internal/evaluator"
	"github.com/feedbreak/feedbreak/internal/events"
	"github.com/feedbreak/feedbreak/internal/llm"
	"github.com/feedbreak/feedbreak/internal/logger"
	"github.com/feedbreak/feedbreak/internal/media"
	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/questiongen"
	"github.com/feedbreak/feedbreak/internal/store"
)

// app bundles what a command needs. Close releases everything it opened.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *store.Store
	service *checkpoint.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.log.Sync()
}

// loadApp reads configuration, opens the store and wires the checkpoint
// service with every collaborator the environment configures.
// logMode overrides FEEDBREAK_LOG_MODE when non-empty.
func loadApp(cmd *cobra.Command, logMode string) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logMode == "" {
		logMode = cfg.LogMode
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	trackerCfg, err := cfg.Tracker()
	if err != nil {
		return nil, err
	}
	tracker, err := progress.NewTracker(st, trackerCfg)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := a.collaborators(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := checkpoint.New(st, tracker, opts)
	if err != nil {
		return nil, err
	}
	a.service = svc
	ok = true
	return a, nil
}

func (a *app) collaborators(ctx context.Context) (checkpoint.Options, error) {
	cfg, log := a.cfg, a.log
	opts := checkpoint.Options{Logger: log}

	provider, err := llm.NewProviderFromEnv(ctx, a.store.EventRepo(), log)
	if err != nil {
		log.Warn("LLM provider not configured, using offline strategies", "error", err)
		provider = nil
	}

	var generators []questiongen.Generator
	if cfg.WebhookURL != "" {
		wh, err := questiongen.NewWebhookGenerator(cfg.WebhookURL, cfg.GeneratorTimeout)
		if err != nil {
			return opts, err
		}
		generators = append(generators, wh)
	}
	if provider != nil {
		generators = append(generators, questiongen.New(provider, questiongen.DefaultConfig()))
	}
	opts.Generator = questiongen.NewGuarded(cfg.GeneratorTimeout, log, generators...)

	var inner evaluator.Evaluator = evaluator.NewKeywordEvaluator()
	if cfg.Evaluator == config.EvaluatorLLM && provider != nil {
		inner = evaluator.NewLLMEvaluator(provider, evaluator.DefaultLLMConfig())
	}
	opts.Evaluator = evaluator.NewGuarded(inner, cfg.EvaluatorTimeout, log)

	var resolver media.Resolver
	if cfg.YouTubeAPIKey != "" {
		yt, err := media.NewYouTubeResolver(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return opts, fmt.Errorf("youtube client: %w", err)
		}
		resolver = yt
		if cfg.RedisAddr != "" {
			cache, err := media.NewRedisCache(ctx, cfg.RedisAddr)
			if err != nil {
				log.Warn("redis unavailable, media cache disabled", "addr", cfg.RedisAddr, "error", err)
			} else {
				a.closers = append(a.closers, cache.Close)
				resolver = media.NewCachedResolver(yt, cache, cfg.MediaCacheTTL, log)
			}
		}
	}
	opts.Media = media.NewBestEffort(resolver, cfg.MediaTimeout, log)

	pub, err := events.NewEventPublisher(cfg.RabbitMQURI, log)
	if err != nil {
		return opts, fmt.Errorf("event publisher: %w", err)
	}
	a.closers = append(a.closers, pub.Close)
	opts.Events = pub

	log.Info("collaborators wired",
		"llm", provider != nil,
		"generators", len(generators),
		"evaluator", cfg.Evaluator,
		"youtube", cfg.YouTubeAPIKey != "",
		"events", pub.Enabled())
	return opts, nil
}
