package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mentorlink/api/internal/analysis"
	"mentorlink/api/internal/app"
	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/config"
	"mentorlink/api/internal/directory"
	"mentorlink/api/internal/docstore"
	"mentorlink/api/internal/jobs"
	"mentorlink/api/internal/ledger"
	"mentorlink/api/internal/logger"
	"mentorlink/api/internal/mentorship"
	"mentorlink/api/internal/search"
)

// runtime holds everything built from the configuration. close releases it
// in reverse order of construction.
type runtime struct {
	store    docstore.Store
	messages *ledger.MessageLedger
	forum    *ledger.ForumLedger
	service  *app.Service
	closers  []func()
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func openStore(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return docstore.NewMemoryStore(), nil
	case config.BackendBadger:
		store, err := docstore.OpenBadger(docstore.BadgerConfig{
			Path:       cfg.BadgerPath,
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
			Logger:     logger.Component("badger"),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store, err := docstore.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		db, err := docstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := docstore.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		return docstore.NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func retryPolicy(cfg config.Config) collection.RetryPolicy {
	policy := collection.DefaultRetryPolicy()
	if cfg.AppendMaxAttempts > 0 {
		policy.MaxAttempts = cfg.AppendMaxAttempts
	}
	if cfg.AppendBackoff > 0 {
		policy.InitialBackoff = cfg.AppendBackoff
	}
	return policy
}

func newAnalyzer(cfg config.Config) (analysis.Analyzer, error) {
	if strings.TrimSpace(cfg.OpenAIKey) == "" {
		lgr.Info().Msg("no OpenAI key configured, using offline analyzer")
		return analysis.NewOffline(), nil
	}
	return analysis.NewOpenAI(analysis.OpenAIConfig{
		APIKey:        cfg.OpenAIKey,
		Model:         cfg.OpenAIModel,
		BaseURL:       cfg.OpenAIBaseURL,
		RatePerMinute: cfg.AnalysisRatePerMinute,
		Logger:        logger.Component("analysis"),
	})
}

// build wires the store, collections, search and analyzer into a Service.
func build(ctx context.Context, cfg config.Config) (*runtime, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: store}
	rt.closers = append(rt.closers, func() {
		if err := store.Close(); err != nil {
			lgr.Warn().Err(err).Msg("store close failed")
		}
	})

	policy := retryPolicy(cfg)
	dir := directory.New(store, policy, logger.Component("directory"))
	rt.messages = ledger.NewMessageLedger(store, policy, time.Now, logger.Component("messages"))
	rt.forum = ledger.NewForumLedger(store, policy, time.Now, logger.Component("forum"))
	board := jobs.New(store, policy, time.Now, logger.Component("jobs"))

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger.Component("search"))
		rt.closers = append(rt.closers, meiliClient.Close)
	}
	scan := &search.Scan{Posts: rt.forum, Users: dir, Jobs: board}

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.service = app.New(app.Deps{
		Store:        store,
		Directory:    dir,
		Messages:     rt.messages,
		Forum:        rt.forum,
		Mentorship:   mentorship.New(store, policy, time.Now, logger.Component("mentorship")),
		Jobs:         board,
		Search:       search.NewService(meiliClient, scan, logger.Component("search")),
		Analyzer:     analyzer,
		PollInterval: cfg.PollInterval,
		Logger:       logger.Component("app"),
	})
	return rt, nil
}
