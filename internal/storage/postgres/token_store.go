package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	token_id, chain, address, primary_pair, eligibility, stage,
	detected_at, run_start_at, peak_liquidity, has_snapshot, is_active,
	rejection_reason, created_at
`

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (
			token_id, chain, address, primary_pair, eligibility, stage,
			detected_at, run_start_at, peak_liquidity, has_snapshot, is_active,
			rejection_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TokenID,
		t.Chain,
		t.Address,
		t.PrimaryPair,
		string(t.Eligibility),
		string(t.Stage),
		t.DetectedAt,
		t.RunStartAt,
		t.PeakLiquidity,
		t.HasSnapshot,
		t.IsActive,
		t.RejectionReason,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, tokenID string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_id = $1`

	row := s.pool.QueryRow(ctx, query, tokenID)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetByEligibility retrieves all tokens in any of the given statuses.
func (s *TokenStore) GetByEligibility(ctx context.Context, statuses ...domain.EligibilityStatus) ([]*domain.Token, error) {
	if len(statuses) == 0 {
		return nil, storage.ErrInvalidInput
	}

	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}

	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE eligibility = ANY($1)
		ORDER BY created_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("get tokens by eligibility: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// GetByStage retrieves all tokens in a lifecycle stage.
func (s *TokenStore) GetByStage(ctx context.Context, stage domain.LifecycleStage) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE stage = $1
		ORDER BY created_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(stage))
	if err != nil {
		return nil, fmt.Errorf("get tokens by stage: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Update replaces a token's mutable state, enforcing monotonic transitions.
// The current row is locked for the duration of the check so concurrent
// updaters cannot race past the transition guard.
func (s *TokenStore) Update(ctx context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update token: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentEligibility string
	var currentDetectedAt *int64
	err = tx.QueryRow(ctx,
		`SELECT eligibility, detected_at FROM tokens WHERE token_id = $1 FOR UPDATE`,
		t.TokenID,
	).Scan(&currentEligibility, &currentDetectedAt)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock token for update: %w", err)
	}

	if !domain.CanTransition(domain.EligibilityStatus(currentEligibility), t.Eligibility) {
		return storage.ErrInvalidTransition
	}
	if currentDetectedAt != nil && (t.DetectedAt == nil || *t.DetectedAt != *currentDetectedAt) {
		return storage.ErrInvalidTransition
	}

	_, err = tx.Exec(ctx, `
		UPDATE tokens SET
			primary_pair = $2,
			eligibility = $3,
			stage = $4,
			detected_at = $5,
			run_start_at = $6,
			peak_liquidity = $7,
			has_snapshot = $8,
			is_active = $9,
			rejection_reason = $10
		WHERE token_id = $1
	`,
		t.TokenID,
		t.PrimaryPair,
		string(t.Eligibility),
		string(t.Stage),
		t.DetectedAt,
		t.RunStartAt,
		t.PeakLiquidity,
		t.HasSnapshot,
		t.IsActive,
		t.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update token: %w", err)
	}
	return nil
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var eligibilityStr, stageStr string

	err := row.Scan(
		&t.TokenID,
		&t.Chain,
		&t.Address,
		&t.PrimaryPair,
		&eligibilityStr,
		&stageStr,
		&t.DetectedAt,
		&t.RunStartAt,
		&t.PeakLiquidity,
		&t.HasSnapshot,
		&t.IsActive,
		&t.RejectionReason,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Eligibility = domain.EligibilityStatus(eligibilityStr)
	t.Stage = domain.LifecycleStage(stageStr)
	return &t, nil
}

// scanTokens scans multiple rows into a slice of Token.
func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token

	for rows.Next() {
		var t domain.Token
		var eligibilityStr, stageStr string

		err := rows.Scan(
			&t.TokenID,
			&t.Chain,
			&t.Address,
			&t.PrimaryPair,
			&eligibilityStr,
			&stageStr,
			&t.DetectedAt,
			&t.RunStartAt,
			&t.PeakLiquidity,
			&t.HasSnapshot,
			&t.IsActive,
			&t.RejectionReason,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}

		t.Eligibility = domain.EligibilityStatus(eligibilityStr)
		t.Stage = domain.LifecycleStage(stageStr)
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
