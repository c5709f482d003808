package storage

import (
	"context"

	"solana-token-screener/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID string) (*domain.Token, error)

	// GetByEligibility retrieves all tokens in any of the given statuses,
	// ordered by created_at ASC, token_id ASC.
	GetByEligibility(ctx context.Context, statuses ...domain.EligibilityStatus) ([]*domain.Token, error)

	// GetByStage retrieves all tokens in a lifecycle stage,
	// ordered by created_at ASC, token_id ASC.
	GetByStage(ctx context.Context, stage domain.LifecycleStage) ([]*domain.Token, error)

	// Update replaces a token's mutable state. The store enforces monotonic
	// transitions: ErrInvalidTransition on any backward eligibility move
	// except the documented ELIGIBLE_PENDING -> PRE_ELIGIBLE reset, and on
	// any change to detected_at once set.
	Update(ctx context.Context, t *domain.Token) error
}

// TradeStore provides access to the append-only trade ledger.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades, skipping duplicates. Returns the
	// number of trades actually inserted.
	InsertBulk(ctx context.Context, trades []*domain.Trade) (int, error)

	// GetByToken retrieves all trades for a token, ordered by timestamp ASC,
	// trade_id ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.Trade, error)

	// GetByTokenPair retrieves trades for a token on one pair,
	// ordered by timestamp ASC, trade_id ASC.
	GetByTokenPair(ctx context.Context, tokenID, pair string) ([]*domain.Trade, error)

	// LatestTimestamp returns the newest trade timestamp for a token, or
	// ErrNotFound if the token has no trades.
	LatestTimestamp(ctx context.Context, tokenID string) (int64, error)
}

// SnapshotStore provides access to feature_snapshots storage.
type SnapshotStore interface {
	// Insert writes a snapshot and, in the same atomic step, flags the token
	// as snapshotted and advances its stage to ACTIVE_MONITORING.
	// Returns ErrDuplicateKey if a snapshot for (token_id, feature_version)
	// already exists; the first snapshot is never mutated.
	Insert(ctx context.Context, snap *domain.FeatureSnapshot) error

	// GetByToken retrieves the snapshot for (token_id, feature_version).
	// Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, tokenID string, featureVersion int) (*domain.FeatureSnapshot, error)

	// GetAll retrieves all snapshots for a feature version,
	// ordered by snapshot_time ASC, token_id ASC.
	GetAll(ctx context.Context, featureVersion int) ([]*domain.FeatureSnapshot, error)
}

// LabelStore provides access to lifecycle_labels storage.
type LabelStore interface {
	// Insert writes a label and, in the same atomic step, deactivates the
	// token and sets its terminal stage. Returns ErrDuplicateKey if the
	// token already has a label; the first label is never mutated.
	Insert(ctx context.Context, label *domain.LifecycleLabel) error

	// GetByToken retrieves a token's label. Returns ErrNotFound if not exists.
	GetByToken(ctx context.Context, tokenID string) (*domain.LifecycleLabel, error)

	// GetAll retrieves all labels, ordered by labeled_at ASC, token_id ASC.
	GetAll(ctx context.Context) ([]*domain.LifecycleLabel, error)
}

// IngestJobStore provides the trade-feed job queue.
type IngestJobStore interface {
	// Enqueue adds a pending job and returns its ID.
	Enqueue(ctx context.Context, source string, payload []byte) (int64, error)

	// Claim atomically claims up to limit pending jobs for this consumer,
	// marking them processing. Concurrent claimers never receive the same
	// job (postgres: FOR UPDATE SKIP LOCKED).
	Claim(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// MarkDone marks a claimed job completed.
	MarkDone(ctx context.Context, jobID int64) error

	// MarkFailed marks a claimed job failed with a reason. Failed jobs are
	// not retried.
	MarkFailed(ctx context.Context, jobID int64, reason string) error
}

// RollupStore provides the analytics mirror of hourly volume buckets.
type RollupStore interface {
	// InsertBulk adds rollup points. Fails the batch on duplicate
	// (token_id, hour_start).
	InsertBulk(ctx context.Context, points []*domain.VolumeRollup) error

	// GetByToken retrieves all rollups for a token, ordered by hour_start ASC.
	GetByToken(ctx context.Context, tokenID string) ([]*domain.VolumeRollup, error)
}
