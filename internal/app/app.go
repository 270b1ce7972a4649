// Package app wires the application together and exposes its run modes:
// a single pipeline pass (--once) or the interval watch loop.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/evpulse/newswatch/internal/core/chunker"
	"github.com/evpulse/newswatch/internal/core/llm"
	"github.com/evpulse/newswatch/internal/core/tokens"
	"github.com/evpulse/newswatch/internal/ingest"
	"github.com/evpulse/newswatch/internal/output/telegram"
	"github.com/evpulse/newswatch/internal/platform/config"
	"github.com/evpulse/newswatch/internal/platform/observability"
	"github.com/evpulse/newswatch/internal/platform/worker"
	"github.com/evpulse/newswatch/internal/process/dedup"
	"github.com/evpulse/newswatch/internal/process/pipeline"
	"github.com/evpulse/newswatch/internal/storage"
)

// App holds the wired dependencies.
type App struct {
	cfg      *config.Config
	store    storage.Store
	postgres *storage.PostgresStore
	pipeline *pipeline.Pipeline
	logger   *zerolog.Logger
}

// New builds the application. A missing or unreachable Postgres DSN is
// not fatal: duplicate suppression degrades to the in-memory store.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	postgres := connectStore(ctx, cfg, logger)
	store := storage.NewFallback(primaryOrNil(postgres), logger)

	sender, err := telegram.NewSender(cfg.BotToken, cfg.TargetChatID, logger)
	if err != nil {
		return nil, fmt.Errorf("telegram sender init: %w", err)
	}

	a := &App{
		cfg:      cfg,
		store:    store,
		postgres: postgres,
		logger:   logger,
	}
	a.pipeline = buildPipeline(cfg, store, llm.NewOpenAI(cfg, logger), sender, logger)

	return a, nil
}

// connectStore connects and migrates Postgres when a DSN is configured.
// Failures are logged and reported as a nil store.
func connectStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *storage.PostgresStore {
	if cfg.PostgresDSN == "" {
		logger.Info().Msg("no Postgres DSN configured, running on the in-memory store")

		return nil
	}

	pg, err := storage.NewPostgres(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Postgres unavailable, running on the in-memory store")
		observability.StoreDegraded.Set(1)

		return nil
	}

	if err := pg.Migrate(ctx); err != nil {
		logger.Warn().Err(err).Msg("migrations failed, running on the in-memory store")
		observability.StoreDegraded.Set(1)
		pg.Close()

		return nil
	}

	return pg
}

func primaryOrNil(pg *storage.PostgresStore) storage.Store {
	if pg == nil {
		return nil
	}

	return pg
}

// buildPipeline assembles the collectors and processing stages around the
// shared estimator and token budget.
func buildPipeline(cfg *config.Config, store storage.Store, llmClient llm.Client, sender pipeline.Sender, logger *zerolog.Logger) *pipeline.Pipeline {
	est := tokens.NewEstimator(cfg.LLMModel)

	fetcher := ingest.NewFetcher(ingest.FetcherOptions{
		Concurrency: cfg.FetchConcurrency,
		Attempts:    cfg.FetchRetries,
		BaseTimeout: cfg.FetchTimeout,
		UserAgent:   cfg.FetchUserAgent,
	}, logger)

	var collectors []pipeline.Collector

	if len(cfg.FeedURLs) > 0 {
		collectors = append(collectors, ingest.NewFeedCollector(fetcher, cfg.FeedURLs, logger))
	}

	if len(cfg.PageURLs) > 0 {
		collectors = append(collectors, ingest.NewPageCollector(fetcher, cfg.PageURLs, cfg.PageLinkSelector, logger))
	}

	return pipeline.New(
		collectors,
		dedup.NewFingerprintCache(store, cfg.FingerprintTTL, logger),
		dedup.NewHistory(store, cfg.HistoryWindowSize),
		dedup.NewNearDuplicateFilter(llmClient, est, dedup.NearDuplicateOptions{
			Ceiling:         cfg.TokenCeiling,
			PromptOverhead:  cfg.PromptOverhead,
			ResponseReserve: cfg.ResponseReserve,
			Threshold:       cfg.SimilarityThreshold,
		}, logger),
		chunker.NewPlanner(est, chunker.PlannerOptions{
			Ceiling:         cfg.TokenCeiling,
			PromptOverhead:  cfg.PromptOverhead,
			ResponseReserve: cfg.ResponseReserve,
			PerItemOverhead: cfg.PerItemOverhead,
			SampleSize:      cfg.BatchSampleSize,
		}),
		est,
		llmClient,
		sender,
		pipeline.Options{
			Ceiling:         cfg.TokenCeiling,
			PromptOverhead:  cfg.PromptOverhead,
			ResponseReserve: cfg.ResponseReserve,
			ChunkOverlap:    cfg.ChunkOverlap,
		},
		logger,
	)
}

// StartHealthServer serves /healthz, /readyz and /metrics until the
// context is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.store, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunOnce executes a single pipeline pass.
func (a *App) RunOnce(ctx context.Context) error {
	a.logger.Info().Msg("Starting single run")

	return a.pipeline.Run(ctx)
}

// RunWatch runs the pipeline every scrape interval, with periodic cleanup
// of expired fingerprints when Postgres backs the store.
func (a *App) RunWatch(ctx context.Context) error {
	a.logger.Info().Dur("interval", a.cfg.ScrapeInterval).Msg("Starting watch mode")

	var tasks []worker.PeriodicTask

	if a.postgres != nil {
		tasks = append(tasks, worker.PeriodicTask{
			Name:     "store-cleanup",
			Interval: a.cfg.StoreCleanupInterval,
			Run: func(ctx context.Context) {
				if err := a.postgres.Cleanup(ctx); err != nil {
					a.logger.Warn().Err(err).Msg("store cleanup failed")
				}
			},
		})
	}

	return worker.Loop(ctx, worker.Config{
		Name:          "newswatch",
		Interval:      a.cfg.ScrapeInterval,
		Process:       a.pipeline.Run,
		PeriodicTasks: tasks,
		Logger:        a.logger,
	})
}

// Close releases the store.
func (a *App) Close() {
	a.store.Close()
}
