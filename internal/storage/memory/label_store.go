package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// LabelStore is an in-memory implementation of storage.LabelStore.
// Like SnapshotStore, it holds a token store reference so the label write
// and the token deactivation happen as one operation.
type LabelStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.LifecycleLabel // keyed by token_id
	tokens *TokenStore
}

// NewLabelStore creates a new in-memory label store bound to tokens.
func NewLabelStore(tokens *TokenStore) *LabelStore {
	return &LabelStore{
		data:   make(map[string]*domain.LifecycleLabel),
		tokens: tokens,
	}
}

// Insert writes a label, deactivates the token and sets its terminal
// stage. Returns ErrDuplicateKey if the token already has a label.
func (s *LabelStore) Insert(_ context.Context, label *domain.LifecycleLabel) error {
	if label == nil || label.TokenID == "" || label.Outcome == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[label.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	if err := s.tokens.finalize(label.TokenID, domain.StageForOutcome(label.Outcome)); err != nil {
		return err
	}

	labelCopy := copyLabel(label)
	s.data[label.TokenID] = labelCopy
	return nil
}

// GetByToken retrieves a token's label. Returns ErrNotFound if not exists.
func (s *LabelStore) GetByToken(_ context.Context, tokenID string) (*domain.LifecycleLabel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	label, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyLabel(label), nil
}

// GetAll retrieves all labels, ordered by labeled_at ASC.
func (s *LabelStore) GetAll(_ context.Context) ([]*domain.LifecycleLabel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LifecycleLabel
	for _, label := range s.data {
		result = append(result, copyLabel(label))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LabeledAt != result[j].LabeledAt {
			return result[i].LabeledAt < result[j].LabeledAt
		}
		return result[i].TokenID < result[j].TokenID
	})
	return result, nil
}

func copyLabel(label *domain.LifecycleLabel) *domain.LifecycleLabel {
	labelCopy := *label
	if label.TimeToOutcome != nil {
		v := *label.TimeToOutcome
		labelCopy.TimeToOutcome = &v
	}
	return &labelCopy
}

// Verify interface compliance at compile time.
var _ storage.LabelStore = (*LabelStore)(nil)
