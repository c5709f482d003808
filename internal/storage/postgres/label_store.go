package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// LabelStore implements storage.LabelStore using PostgreSQL.
// Insert runs the label write and the token deactivation in a single
// transaction; the UNIQUE constraint on token_id makes the whole resolver
// pass idempotent.
type LabelStore struct {
	pool *Pool
}

// NewLabelStore creates a new LabelStore.
func NewLabelStore(pool *Pool) *LabelStore {
	return &LabelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LabelStore = (*LabelStore)(nil)

const labelColumns = `
	token_id, outcome, reason, max_multiplier, time_to_outcome, labeled_at
`

// Insert writes a label, deactivates the token and sets its terminal
// stage. Returns ErrDuplicateKey if the token already has a label.
func (s *LabelStore) Insert(ctx context.Context, label *domain.LifecycleLabel) error {
	if label == nil || label.TokenID == "" || label.Outcome == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert label: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO lifecycle_labels (
			token_id, outcome, reason, max_multiplier, time_to_outcome, labeled_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`,
		label.TokenID,
		string(label.Outcome),
		label.Reason,
		label.MaxMultiplier,
		label.TimeToOutcome,
		label.LabeledAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert label: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE tokens
		SET is_active = FALSE, stage = $2
		WHERE token_id = $1
	`, label.TokenID, string(domain.StageForOutcome(label.Outcome)))
	if err != nil {
		return fmt.Errorf("finalize token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert label: %w", err)
	}
	return nil
}

// GetByToken retrieves a token's label. Returns ErrNotFound if not exists.
func (s *LabelStore) GetByToken(ctx context.Context, tokenID string) (*domain.LifecycleLabel, error) {
	query := `SELECT ` + labelColumns + ` FROM lifecycle_labels WHERE token_id = $1`

	row := s.pool.QueryRow(ctx, query, tokenID)
	label, err := scanLabel(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get label by token: %w", err)
	}
	return label, nil
}

// GetAll retrieves all labels, ordered by labeled_at ASC.
func (s *LabelStore) GetAll(ctx context.Context) ([]*domain.LifecycleLabel, error) {
	query := `
		SELECT ` + labelColumns + `
		FROM lifecycle_labels
		ORDER BY labeled_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all labels: %w", err)
	}
	defer rows.Close()

	var labels []*domain.LifecycleLabel
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}
	return labels, nil
}

// scanLabel scans a single row into a LifecycleLabel.
func scanLabel(row pgx.Row) (*domain.LifecycleLabel, error) {
	var label domain.LifecycleLabel
	var outcomeStr string

	err := row.Scan(
		&label.TokenID,
		&outcomeStr,
		&label.Reason,
		&label.MaxMultiplier,
		&label.TimeToOutcome,
		&label.LabeledAt,
	)
	if err != nil {
		return nil, err
	}

	label.Outcome = domain.Outcome(outcomeStr)
	return &label, nil
}
