package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Insert runs the snapshot write and the token stage advance in a single
// transaction so a crash can never leave a snapshotted token behind in
// the INACTIVE stage.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	token_id, feature_version, snapshot_time, features, state, score,
	liquidity_collapse_usd, price_failure_usd, data_gaps, created_at
`

// Insert writes a snapshot and advances the token to ACTIVE_MONITORING.
// Returns ErrDuplicateKey if (token_id, feature_version) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.FeatureSnapshot) error {
	if snap == nil || snap.TokenID == "" || snap.FeatureVersion < 1 {
		return storage.ErrInvalidInput
	}

	featuresJSON, err := json.Marshal(snap.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	scoreJSON, err := json.Marshal(snap.Score)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	gapsJSON, err := json.Marshal(snap.DataGaps)
	if err != nil {
		return fmt.Errorf("marshal data gaps: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO feature_snapshots (
			token_id, feature_version, snapshot_time, features, state, score,
			liquidity_collapse_usd, price_failure_usd, data_gaps, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		snap.TokenID,
		snap.FeatureVersion,
		snap.SnapshotTime,
		featuresJSON,
		string(snap.State),
		scoreJSON,
		snap.LiquidityCollapseUSD,
		snap.PriceFailureUSD,
		gapsJSON,
		snap.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE tokens
		SET has_snapshot = TRUE, stage = $2
		WHERE token_id = $1
	`, snap.TokenID, string(domain.StageActiveMonitoring))
	if err != nil {
		return fmt.Errorf("advance token stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert snapshot: %w", err)
	}
	return nil
}

// GetByToken retrieves the snapshot for (token_id, feature_version).
func (s *SnapshotStore) GetByToken(ctx context.Context, tokenID string, featureVersion int) (*domain.FeatureSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM feature_snapshots
		WHERE token_id = $1 AND feature_version = $2
	`

	row := s.pool.QueryRow(ctx, query, tokenID, featureVersion)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by token: %w", err)
	}
	return snap, nil
}

// GetAll retrieves all snapshots for a feature version.
func (s *SnapshotStore) GetAll(ctx context.Context, featureVersion int) ([]*domain.FeatureSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM feature_snapshots
		WHERE feature_version = $1
		ORDER BY snapshot_time ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, featureVersion)
	if err != nil {
		return nil, fmt.Errorf("get all snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.FeatureSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snaps, nil
}

// scanSnapshot scans a single row into a FeatureSnapshot.
func scanSnapshot(row pgx.Row) (*domain.FeatureSnapshot, error) {
	var snap domain.FeatureSnapshot
	var stateStr string
	var featuresJSON, scoreJSON, gapsJSON []byte

	err := row.Scan(
		&snap.TokenID,
		&snap.FeatureVersion,
		&snap.SnapshotTime,
		&featuresJSON,
		&stateStr,
		&scoreJSON,
		&snap.LiquidityCollapseUSD,
		&snap.PriceFailureUSD,
		&gapsJSON,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(featuresJSON, &snap.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	if err := json.Unmarshal(scoreJSON, &snap.Score); err != nil {
		return nil, fmt.Errorf("unmarshal score: %w", err)
	}
	if len(gapsJSON) > 0 {
		if err := json.Unmarshal(gapsJSON, &snap.DataGaps); err != nil {
			return nil, fmt.Errorf("unmarshal data gaps: %w", err)
		}
	}

	snap.State = domain.LifecycleState(stateStr)
	return &snap, nil
}
