package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// RollupStore is an in-memory implementation of storage.RollupStore.
type RollupStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.VolumeRollup // token_id -> hour_start
}

// NewRollupStore creates a new in-memory rollup store.
func NewRollupStore() *RollupStore {
	return &RollupStore{
		data: make(map[string]map[int64]*domain.VolumeRollup),
	}
}

// InsertBulk adds rollup points. Fails the whole batch on any duplicate
// (token_id, hour_start) without inserting anything.
func (s *RollupStore) InsertBulk(_ context.Context, points []*domain.VolumeRollup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.TokenID == "" {
			return storage.ErrInvalidInput
		}
		if hours, exists := s.data[p.TokenID]; exists {
			if _, dup := hours[p.HourStart]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	for _, p := range points {
		hours, exists := s.data[p.TokenID]
		if !exists {
			hours = make(map[int64]*domain.VolumeRollup)
			s.data[p.TokenID] = hours
		}
		pointCopy := *p
		hours[p.HourStart] = &pointCopy
	}
	return nil
}

// GetByToken retrieves all rollups for a token, ordered by hour_start ASC.
func (s *RollupStore) GetByToken(_ context.Context, tokenID string) ([]*domain.VolumeRollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hours, exists := s.data[tokenID]
	if !exists {
		return nil, nil
	}

	result := make([]*domain.VolumeRollup, 0, len(hours))
	for _, p := range hours {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].HourStart < result[j].HourStart
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.RollupStore = (*RollupStore)(nil)
