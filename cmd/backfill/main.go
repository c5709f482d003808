// Package main replays JSON trade dumps through the ingest normalizer
// into storage. Each input file holds one feed payload: a JSON array of
// trade events. Invalid payloads fail their file without aborting the
// run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/ingestion"
	"solana-token-screener/internal/storage"
	"solana-token-screener/internal/storage/memory"
	"solana-token-screener/internal/storage/migrations"
	pgstore "solana-token-screener/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	source := flag.String("source", "backfill", "Queue source tag for the replayed payloads")
	dryRun := flag.Bool("dry-run", false, "Validate against in-memory storage without writing to PostgreSQL")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: backfill [flags] <dump.json> [more.json ...]")
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, files, *source, *dryRun); err != nil {
		logger.Fatal().Err(err).Msg("backfill")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, files []string, source string, dryRun bool) error {
	var (
		jobs   storage.IngestJobStore
		tokens storage.TokenStore
		trades storage.TradeStore
	)

	if dryRun {
		memTokens := memory.NewTokenStore()
		jobs = memory.NewIngestJobStore()
		tokens = memTokens
		trades = memory.NewTradeStore()
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
	}

	for _, path := range files {
		payload, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := jobs.Enqueue(ctx, source, payload); err != nil {
			return fmt.Errorf("enqueue %s: %w", path, err)
		}
		logger.Info().Str("file", path).Int("bytes", len(payload)).Msg("payload enqueued")
	}

	worker := ingestion.NewWorker(cfg.Worker, jobs, tokens, trades, logger)

	var total ingestion.Result
	for {
		result, err := worker.RunOnce(ctx)
		if err != nil {
			return err
		}
		total.Claimed += result.Claimed
		total.Done += result.Done
		total.Failed += result.Failed
		total.TradesInserted += result.TradesInserted
		if result.Claimed == 0 {
			break
		}
	}

	fmt.Println("Backfill complete:")
	fmt.Printf("  Payloads: %d done, %d failed\n", total.Done, total.Failed)
	fmt.Printf("  Trades inserted: %d\n", total.TradesInserted)
	if dryRun {
		fmt.Println("  (dry run, nothing persisted)")
	}
	if total.Failed > 0 {
		return fmt.Errorf("%d payloads failed validation", total.Failed)
	}
	return nil
}
