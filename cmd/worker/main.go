// Package main runs the production screening loop: a websocket feed
// drains into the ingest queue while the pipeline stages run over
// Postgres every poll interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/features"
	"solana-token-screener/internal/gate"
	"solana-token-screener/internal/ingestion"
	"solana-token-screener/internal/orchestrator"
	"solana-token-screener/internal/resolver"
	"solana-token-screener/internal/scoring"
	"solana-token-screener/internal/storage"
	chstore "solana-token-screener/internal/storage/clickhouse"
	"solana-token-screener/internal/storage/memory"
	"solana-token-screener/internal/storage/migrations"
	pgstore "solana-token-screener/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	withMirror := flag.Bool("with-mirror", false, "Mirror hourly rollups to ClickHouse")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger := newLogger(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, *useMemory, *withMirror); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker")
	}
	logger.Info().Msg("shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, useMemory, withMirror bool) error {
	var (
		jobs      storage.IngestJobStore
		tokens    storage.TokenStore
		trades    storage.TradeStore
		snapshots storage.SnapshotStore
		labels    storage.LabelStore
	)

	if useMemory {
		memTokens := memory.NewTokenStore()
		jobs = memory.NewIngestJobStore()
		tokens = memTokens
		trades = memory.NewTradeStore()
		snapshots = memory.NewSnapshotStore(memTokens)
		labels = memory.NewLabelStore(memTokens)
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		jobs = pgstore.NewIngestJobStore(pool)
		tokens = pgstore.NewTokenStore(pool)
		trades = pgstore.NewTradeStore(pool)
		snapshots = pgstore.NewSnapshotStore(pool)
		labels = pgstore.NewLabelStore(pool)
	}

	var mirror *ingestion.Mirror
	if withMirror {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseAddr, cfg.Storage.ClickHouseDB)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer conn.Close()
		mirror = ingestion.NewMirror(tokens, trades, chstore.NewRollupStore(conn), logger)
	}

	orch := orchestrator.New(orchestrator.Options{
		Worker:    ingestion.NewWorker(cfg.Worker, jobs, tokens, trades, logger),
		Gate:      gate.New(cfg.Gate, tokens, trades),
		Snapshots: features.New(cfg.Features, scoring.NewEngine(cfg.Scoring), tokens, trades, snapshots),
		Resolver:  resolver.New(cfg.Resolver, tokens, trades, labels),
		Mirror:    mirror,
		Logger:    logger,
	})

	feedErr := make(chan error, 1)
	if cfg.Worker.FeedURL != "" {
		feed := ingestion.NewFeed(cfg.Worker, jobs, logger)
		go func() { feedErr <- feed.Run(ctx) }()
		logger.Info().Str("url", cfg.Worker.FeedURL).Msg("feed started")
	}

	logger.Info().Dur("interval", cfg.Worker.PollInterval).Msg("pipeline loop started")

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := orch.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			// One bad cycle should not take the worker down.
			logger.Error().Err(err).Msg("pipeline cycle")
		}

		select {
		case <-ctx.Done():
			return drainFeed(cfg, feedErr, ctx.Err())
		case err := <-feedErr:
			return fmt.Errorf("feed: %w", err)
		case <-ticker.C:
		}
	}
	return drainFeed(cfg, feedErr, ctx.Err())
}

// drainFeed waits for the feed goroutine to observe cancellation.
func drainFeed(cfg *config.Config, feedErr chan error, cause error) error {
	if cfg.Worker.FeedURL == "" {
		return cause
	}
	select {
	case <-feedErr:
	case <-time.After(5 * time.Second):
	}
	return cause
}
