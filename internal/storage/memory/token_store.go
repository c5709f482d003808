package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token_id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if token_id exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tokenCopy := copyToken(t)
	s.data[t.TokenID] = tokenCopy
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, tokenID string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyToken(t), nil
}

// GetByEligibility retrieves all tokens in any of the given statuses.
func (s *TokenStore) GetByEligibility(_ context.Context, statuses ...domain.EligibilityStatus) ([]*domain.Token, error) {
	if len(statuses) == 0 {
		return nil, storage.ErrInvalidInput
	}

	wanted := make(map[domain.EligibilityStatus]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if _, ok := wanted[t.Eligibility]; ok {
			result = append(result, copyToken(t))
		}
	}

	sortTokens(result)
	return result, nil
}

// GetByStage retrieves all tokens in a lifecycle stage.
func (s *TokenStore) GetByStage(_ context.Context, stage domain.LifecycleStage) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Stage == stage {
			result = append(result, copyToken(t))
		}
	}

	sortTokens(result)
	return result, nil
}

// Update replaces a token's mutable state, enforcing monotonic transitions.
func (s *TokenStore) Update(_ context.Context, t *domain.Token) error {
	if t == nil || t.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[t.TokenID]
	if !exists {
		return storage.ErrNotFound
	}
	if !domain.CanTransition(existing.Eligibility, t.Eligibility) {
		return storage.ErrInvalidTransition
	}
	if existing.DetectedAt != nil && (t.DetectedAt == nil || *t.DetectedAt != *existing.DetectedAt) {
		return storage.ErrInvalidTransition
	}

	s.data[t.TokenID] = copyToken(t)
	return nil
}

// markSnapshotted flags the token as snapshotted and advances it to
// ACTIVE_MONITORING. Called by SnapshotStore under its own lock so the
// snapshot write and the stage advance observe a single ordering.
func (s *TokenStore) markSnapshotted(tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tokenID]
	if !exists {
		return storage.ErrNotFound
	}
	t.HasSnapshot = true
	t.Stage = domain.StageActiveMonitoring
	return nil
}

// finalize deactivates the token and sets its terminal stage. Called by
// LabelStore under its own lock.
func (s *TokenStore) finalize(tokenID string, stage domain.LifecycleStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tokenID]
	if !exists {
		return storage.ErrNotFound
	}
	t.IsActive = false
	t.Stage = stage
	return nil
}

func copyToken(t *domain.Token) *domain.Token {
	tokenCopy := *t
	if t.DetectedAt != nil {
		v := *t.DetectedAt
		tokenCopy.DetectedAt = &v
	}
	if t.RunStartAt != nil {
		v := *t.RunStartAt
		tokenCopy.RunStartAt = &v
	}
	return &tokenCopy
}

func sortTokens(tokens []*domain.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CreatedAt != tokens[j].CreatedAt {
			return tokens[i].CreatedAt < tokens[j].CreatedAt
		}
		return tokens[i].TokenID < tokens[j].TokenID
	})
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
