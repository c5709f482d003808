package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// It holds a reference to the token store so the snapshot write and the
// token stage advance happen as one operation, mirroring the transactional
// Insert of the postgres backend.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   map[string]map[int]*domain.FeatureSnapshot // token_id -> feature_version
	tokens *TokenStore
}

// NewSnapshotStore creates a new in-memory snapshot store bound to tokens.
func NewSnapshotStore(tokens *TokenStore) *SnapshotStore {
	return &SnapshotStore{
		data:   make(map[string]map[int]*domain.FeatureSnapshot),
		tokens: tokens,
	}
}

// Insert writes a snapshot and advances the token to ACTIVE_MONITORING.
// Returns ErrDuplicateKey if (token_id, feature_version) exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.FeatureSnapshot) error {
	if snap == nil || snap.TokenID == "" || snap.FeatureVersion < 1 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, exists := s.data[snap.TokenID]
	if exists {
		if _, dup := versions[snap.FeatureVersion]; dup {
			return storage.ErrDuplicateKey
		}
	} else {
		versions = make(map[int]*domain.FeatureSnapshot)
		s.data[snap.TokenID] = versions
	}

	if err := s.tokens.markSnapshotted(snap.TokenID); err != nil {
		return err
	}

	versions[snap.FeatureVersion] = copySnapshot(snap)
	return nil
}

// GetByToken retrieves the snapshot for (token_id, feature_version).
func (s *SnapshotStore) GetByToken(_ context.Context, tokenID string, featureVersion int) (*domain.FeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	snap, exists := versions[featureVersion]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetAll retrieves all snapshots for a feature version.
func (s *SnapshotStore) GetAll(_ context.Context, featureVersion int) ([]*domain.FeatureSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureSnapshot
	for _, versions := range s.data {
		if snap, exists := versions[featureVersion]; exists {
			result = append(result, copySnapshot(snap))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SnapshotTime != result[j].SnapshotTime {
			return result[i].SnapshotTime < result[j].SnapshotTime
		}
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

func copySnapshot(snap *domain.FeatureSnapshot) *domain.FeatureSnapshot {
	snapCopy := *snap
	if snap.DataGaps != nil {
		snapCopy.DataGaps = append([]string(nil), snap.DataGaps...)
	}
	if snap.Score.Breakdown != nil {
		breakdown := make(map[string]domain.ComponentScore, len(snap.Score.Breakdown))
		for k, v := range snap.Score.Breakdown {
			breakdown[k] = v
		}
		snapCopy.Score.Breakdown = breakdown
	}
	return &snapCopy
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
