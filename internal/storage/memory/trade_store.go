package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	tradeCopy := *t
	s.data[t.TradeID] = &tradeCopy
	return nil
}

// InsertBulk adds multiple trades, skipping duplicates. Returns the number
// of trades actually inserted.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return inserted, storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			continue
		}
		tradeCopy := *t
		s.data[t.TradeID] = &tradeCopy
		inserted++
	}
	return inserted, nil
}

// GetByToken retrieves all trades for a token, ordered by timestamp ASC.
func (s *TradeStore) GetByToken(_ context.Context, tokenID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TokenID == tokenID {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByTokenPair retrieves trades for a token on one pair, ordered by
// timestamp ASC.
func (s *TradeStore) GetByTokenPair(_ context.Context, tokenID, pair string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TokenID == tokenID && t.PairAddress == pair {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// LatestTimestamp returns the newest trade timestamp for a token.
func (s *TradeStore) LatestTimestamp(_ context.Context, tokenID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	found := false
	for _, t := range s.data {
		if t.TokenID != tokenID {
			continue
		}
		if !found || t.Timestamp > latest {
			latest = t.Timestamp
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}

// Verify interface compliance at compile time.
var _ storage.TradeStore = (*TradeStore)(nil)
