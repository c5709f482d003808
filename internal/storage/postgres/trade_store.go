package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, token_id, wallet, side, amount_token, amount_usd,
	price_usd, liquidity, pair_address, quote_mint, timestamp, tx_signature, created_at
`

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, token_id, wallet, side, amount_token, amount_usd,
		price_usd, liquidity, pair_address, quote_mint, timestamp, tx_signature, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades, skipping duplicates. Returns the number
// of trades actually inserted.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return 0, storage.ErrInvalidInput
		}
		batch.Queue(insertTradeQuery+` ON CONFLICT (trade_id) DO NOTHING`, tradeArgs(t)...)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range trades {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("bulk insert trade: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// GetByToken retrieves all trades for a token, ordered by timestamp ASC.
func (s *TradeStore) GetByToken(ctx context.Context, tokenID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = $1
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTokenPair retrieves trades for a token on one pair, ordered by
// timestamp ASC.
func (s *TradeStore) GetByTokenPair(ctx context.Context, tokenID, pair string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE token_id = $1 AND pair_address = $2
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, pair)
	if err != nil {
		return nil, fmt.Errorf("get trades by token pair: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// LatestTimestamp returns the newest trade timestamp for a token.
func (s *TradeStore) LatestTimestamp(ctx context.Context, tokenID string) (int64, error) {
	query := `
		SELECT timestamp
		FROM trades
		WHERE token_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var latest int64
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(&latest)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("latest trade timestamp: %w", err)
	}
	return latest, nil
}

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.TradeID,
		t.TokenID,
		t.Wallet,
		t.Side,
		t.AmountToken,
		t.AmountUSD,
		t.PriceUSD,
		t.Liquidity,
		t.PairAddress,
		t.QuoteMint,
		t.Timestamp,
		t.TxSignature,
		t.CreatedAt,
	}
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade

		err := rows.Scan(
			&t.TradeID,
			&t.TokenID,
			&t.Wallet,
			&t.Side,
			&t.AmountToken,
			&t.AmountUSD,
			&t.PriceUSD,
			&t.Liquidity,
			&t.PairAddress,
			&t.QuoteMint,
			&t.Timestamp,
			&t.TxSignature,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
