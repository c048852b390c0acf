// Package main wires together the news aggregation service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/newswire-hq/newswire/internal/api"
	"github.com/newswire-hq/newswire/internal/clock/system"
	"github.com/newswire-hq/newswire/internal/config"
	"github.com/newswire-hq/newswire/internal/hash/sha256"
	"github.com/newswire-hq/newswire/internal/id/uuid"
	"github.com/newswire-hq/newswire/internal/jobs"
	"github.com/newswire-hq/newswire/internal/logging"
	"github.com/newswire-hq/newswire/internal/news"
	"github.com/newswire-hq/newswire/internal/normalize"
	"github.com/newswire-hq/newswire/internal/orchestrator"
	"github.com/newswire-hq/newswire/internal/progress"
	"github.com/newswire-hq/newswire/internal/progress/sinks"
	queueMemory "github.com/newswire-hq/newswire/internal/queue/memory"
	"github.com/newswire-hq/newswire/internal/secrets"
	"github.com/newswire-hq/newswire/internal/source"
	memoryStorage "github.com/newswire-hq/newswire/internal/storage/memory"
	postgresStorage "github.com/newswire-hq/newswire/internal/storage/postgres"
	"github.com/newswire-hq/newswire/internal/worker"
)

type stores struct {
	jobs       news.JobStore
	articles   news.ArticleStore
	sources    news.SourceStore
	categories news.CategoryStore
	close      func()
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Optional; real deployments set variables in the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()

	st, err := buildStores(ctx, cfg, clock, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		logger.Fatal("metrics init failed", zap.Error(err))
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	creds := secrets.NewEnvResolver(cfg.Providers.CredentialPrefix)
	adapters := source.DefaultRegistry(source.NewHTTPClient(cfg.HTTPTimeout()), creds)
	norm := normalize.New(sha256.New())

	orch := orchestrator.New(
		st.sources,
		st.articles,
		st.categories,
		adapters,
		norm,
		clock,
		hub,
		logger.Named("orchestrator"),
		orchestrator.Config{SourceTimeout: cfg.SourceTimeout()},
	)

	queue := queueMemory.New(cfg.Fetch.QueueDepth)
	pool := worker.NewPool(cfg.Fetch.Workers, queue, st.jobs, orch, clock, hub, logger.Named("worker"))
	pool.Start(ctx)

	manager := jobs.NewManager(st.jobs, st.sources, queue, uuid.New(), clock, logger.Named("jobs"))
	apiServer := api.NewServer(manager, st.articles, st.sources, registry, logger.Named("api"), cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := pool.Wait(shutdownCtx); err != nil {
		logger.Error("worker shutdown error", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildStores selects postgres when a DSN is configured and falls back to the
// seeded in-memory stores for local development.
func buildStores(ctx context.Context, cfg config.Config, clock news.Clock, logger *zap.Logger) (stores, error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, using in-memory stores")
		return stores{
			jobs:       memoryStorage.NewJobStore(clock),
			articles:   memoryStorage.NewArticleStore(clock),
			sources:    memoryStorage.NewSourceStore(clock, seedSources(clock)),
			categories: memoryStorage.NewCategoryStore(seedCategories()),
			close:      func() {},
		}, nil
	}
	pool, err := postgresStorage.NewPool(ctx, postgresStorage.PoolConfig{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime(),
	})
	if err != nil {
		return stores{}, err
	}
	return stores{
		jobs:       postgresStorage.NewJobStore(pool, clock),
		articles:   postgresStorage.NewArticleStore(pool, clock),
		sources:    postgresStorage.NewSourceStore(pool, clock),
		categories: postgresStorage.NewCategoryStore(pool),
		close:      pool.Close,
	}, nil
}

func seedSources(clock news.Clock) []news.NewsSource {
	now := clock.Now()
	mk := func(id int64, name, cred string) news.NewsSource {
		return news.NewsSource{
			ID:            id,
			Name:          name,
			CredentialRef: cred,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return []news.NewsSource{
		mk(1, "newsapi", "NEWSAPI_KEY"),
		mk(2, "finnhub", "FINNHUB_KEY"),
		mk(3, "alphavantage", "ALPHAVANTAGE_KEY"),
		mk(4, "gnews", "GNEWS_KEY"),
	}
}

func seedCategories() []news.Category {
	return []news.Category{
		{ID: 1, Name: "Financial", Slug: "financial"},
		{ID: 2, Name: "General", Slug: "general"},
		{ID: 3, Name: "Keyword", Slug: "keyword"},
	}
}
