package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-token-screener/internal/config"
	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Result summarizes one queue-drain batch.
type Result struct {
	Claimed        int
	Done           int
	Failed         int
	TradesInserted int
}

// Option configures a Worker.
type Option func(*Worker)

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// Worker drains the ingest queue into the token registry and trade
// ledger. Multiple workers can run concurrently; the queue's claim
// semantics guarantee each job is processed once.
type Worker struct {
	cfg    config.WorkerConfig
	jobs   storage.IngestJobStore
	tokens storage.TokenStore
	trades storage.TradeStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewWorker creates an ingestion Worker.
func NewWorker(
	cfg config.WorkerConfig,
	jobs storage.IngestJobStore,
	tokens storage.TokenStore,
	trades storage.TradeStore,
	logger zerolog.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		cfg:    cfg,
		jobs:   jobs,
		tokens: tokens,
		trades: trades,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the queue every poll interval until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		result, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("ingest batch failed")
		} else if result.Claimed > 0 {
			w.logger.Info().
				Int("claimed", result.Claimed).
				Int("done", result.Done).
				Int("failed", result.Failed).
				Int("trades", result.TradesInserted).
				Msg("ingest batch complete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce claims and processes one batch of pending jobs. A bad payload
// fails its own job; it never aborts the batch.
func (w *Worker) RunOnce(ctx context.Context) (*Result, error) {
	jobs, err := w.jobs.Claim(ctx, w.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	result := &Result{Claimed: len(jobs)}
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		inserted, err := w.process(ctx, job)
		if err != nil {
			result.Failed++
			w.logger.Warn().Int64("job", job.ID).Err(err).Msg("ingest job failed")
			if markErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				return result, fmt.Errorf("mark job %d failed: %w", job.ID, markErr)
			}
			continue
		}
		result.TradesInserted += inserted
		if err := w.jobs.MarkDone(ctx, job.ID); err != nil {
			return result, fmt.Errorf("mark job %d done: %w", job.ID, err)
		}
		result.Done++
	}
	return result, nil
}

// process normalizes one job and lands its trades, registering any
// tokens seen for the first time.
func (w *Worker) process(ctx context.Context, job *domain.IngestJob) (int, error) {
	now := w.now().UnixMilli()
	trades, mints, err := normalizePayload(job.Payload, now, w.cfg.RequireOnCurveAccounts)
	if err != nil {
		return 0, err
	}

	if err := w.registerTokens(ctx, mints, now); err != nil {
		return 0, err
	}

	inserted, err := w.trades.InsertBulk(ctx, trades)
	if err != nil {
		return 0, fmt.Errorf("insert trades: %w", err)
	}
	return inserted, nil
}

// registerTokens inserts any tokens this batch references that the
// registry does not know yet. New tokens start PRE_ELIGIBLE and wait for
// the gate.
func (w *Worker) registerTokens(ctx context.Context, mints map[string]tokenKey, now int64) error {
	for tokenID, key := range mints {
		token := &domain.Token{
			TokenID:     tokenID,
			Chain:       key.chain,
			Address:     key.mint,
			Eligibility: domain.EligibilityPreEligible,
			Stage:       domain.StageInactive,
			IsActive:    true,
			CreatedAt:   now,
		}
		if err := w.tokens.Insert(ctx, token); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("register token %s: %w", tokenID, err)
		}
		w.logger.Info().Str("token", tokenID).Str("mint", key.mint).Msg("new token registered")
	}
	return nil
}
