package clickhouse

import (
	"context"
	"fmt"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// RollupStore implements storage.RollupStore using ClickHouse.
type RollupStore struct {
	conn *Conn
}

// NewRollupStore creates a new RollupStore.
func NewRollupStore(conn *Conn) *RollupStore {
	return &RollupStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RollupStore = (*RollupStore)(nil)

// InsertBulk adds rollup points. Fails the whole batch on any duplicate
// (token_id, hour_start). MergeTree does not enforce uniqueness, so
// duplicates are checked explicitly before the batch is sent.
func (s *RollupStore) InsertBulk(ctx context.Context, points []*domain.VolumeRollup) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tokenID   string
		hourStart int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.TokenID, p.HourStart}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.TokenID, p.HourStart)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO volume_rollups (
			token_id, hour_start, volume, buy_volume, sell_volume, trade_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TokenID, uint64(p.HourStart),
			p.Volume, p.BuyVolume, p.SellVolume, uint32(p.TradeCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all rollups for a token, ordered by hour_start ASC.
func (s *RollupStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.VolumeRollup, error) {
	query := `
		SELECT token_id, hour_start, volume, buy_volume, sell_volume, trade_count
		FROM volume_rollups
		WHERE token_id = ?
		ORDER BY hour_start ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query rollups by token: %w", err)
	}
	defer rows.Close()

	var points []*domain.VolumeRollup
	for rows.Next() {
		var p domain.VolumeRollup
		var hourStart uint64
		var tradeCount uint32

		err := rows.Scan(&p.TokenID, &hourStart, &p.Volume, &p.BuyVolume, &p.SellVolume, &tradeCount)
		if err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}

		p.HourStart = int64(hourStart)
		p.TradeCount = int(tradeCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollup rows: %w", err)
	}

	return points, nil
}

// exists checks whether a rollup row is already present.
func (s *RollupStore) exists(ctx context.Context, tokenID string, hourStart int64) (bool, error) {
	query := `
		SELECT count() FROM volume_rollups
		WHERE token_id = ? AND hour_start = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tokenID, uint64(hourStart)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
