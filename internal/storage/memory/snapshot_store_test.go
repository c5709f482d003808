package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

func TestSnapshotStore_InsertAdvancesToken(t *testing.T) {
	tokens := NewTokenStore()
	store := NewSnapshotStore(tokens)
	ctx := context.Background()

	tok := &domain.Token{
		TokenID:     "tok1",
		Eligibility: domain.EligibilityEligible,
		Stage:       domain.StageInactive,
		IsActive:    true,
	}
	if err := tokens.Insert(ctx, tok); err != nil {
		t.Fatalf("Insert token failed: %v", err)
	}

	snap := &domain.FeatureSnapshot{
		TokenID:        "tok1",
		FeatureVersion: 1,
		SnapshotTime:   1704067200000,
		State:          domain.StateMomentum,
	}
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert snapshot failed: %v", err)
	}

	got, err := tokens.GetByID(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.HasSnapshot {
		t.Error("Expected HasSnapshot = true after snapshot insert")
	}
	if got.Stage != domain.StageActiveMonitoring {
		t.Errorf("Expected ACTIVE_MONITORING, got %s", got.Stage)
	}
}

func TestSnapshotStore_DuplicateVersionRejected(t *testing.T) {
	tokens := NewTokenStore()
	store := NewSnapshotStore(tokens)
	ctx := context.Background()

	if err := tokens.Insert(ctx, &domain.Token{TokenID: "tok1"}); err != nil {
		t.Fatalf("Insert token failed: %v", err)
	}

	snap := &domain.FeatureSnapshot{TokenID: "tok1", FeatureVersion: 1}
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, snap); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// A different feature version is a separate snapshot.
	v2 := &domain.FeatureSnapshot{TokenID: "tok1", FeatureVersion: 2}
	if err := store.Insert(ctx, v2); err != nil {
		t.Errorf("Insert of new version failed: %v", err)
	}
}

func TestSnapshotStore_UnknownTokenRejected(t *testing.T) {
	tokens := NewTokenStore()
	store := NewSnapshotStore(tokens)
	ctx := context.Background()

	snap := &domain.FeatureSnapshot{TokenID: "ghost", FeatureVersion: 1}
	if err := store.Insert(ctx, snap); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByToken(ctx, "ghost", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_GetAllOrdering(t *testing.T) {
	tokens := NewTokenStore()
	store := NewSnapshotStore(tokens)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := tokens.Insert(ctx, &domain.Token{TokenID: id}); err != nil {
			t.Fatalf("Insert token failed: %v", err)
		}
	}
	for _, snap := range []*domain.FeatureSnapshot{
		{TokenID: "c", FeatureVersion: 1, SnapshotTime: 1000},
		{TokenID: "b", FeatureVersion: 1, SnapshotTime: 3000},
		{TokenID: "a", FeatureVersion: 1, SnapshotTime: 3000},
	} {
		if err := store.Insert(ctx, snap); err != nil {
			t.Fatalf("Insert snapshot failed: %v", err)
		}
	}

	got, err := store.GetAll(ctx, 1)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	wantOrder := []string{"c", "a", "b"}
	for i, id := range wantOrder {
		if got[i].TokenID != id {
			t.Errorf("Position %d: got %s, want %s", i, got[i].TokenID, id)
		}
	}
}

func TestSnapshotStore_CopySemantics(t *testing.T) {
	tokens := NewTokenStore()
	store := NewSnapshotStore(tokens)
	ctx := context.Background()

	if err := tokens.Insert(ctx, &domain.Token{TokenID: "tok1"}); err != nil {
		t.Fatalf("Insert token failed: %v", err)
	}

	snap := &domain.FeatureSnapshot{
		TokenID:        "tok1",
		FeatureVersion: 1,
		DataGaps:       []string{"6h"},
		Score: domain.ScoreResult{
			Breakdown: map[string]domain.ComponentScore{
				"buy_sell_ratio": {Raw: 1.5, Normalized: 0.66, Points: 3.3},
			},
		},
	}
	if err := store.Insert(ctx, snap); err != nil {
		t.Fatalf("Insert snapshot failed: %v", err)
	}

	snap.DataGaps[0] = "mutated"
	snap.Score.Breakdown["buy_sell_ratio"] = domain.ComponentScore{}

	got, err := store.GetByToken(ctx, "tok1", 1)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if got.DataGaps[0] != "6h" {
		t.Errorf("Stored DataGaps mutated externally: %v", got.DataGaps)
	}
	if got.Score.Breakdown["buy_sell_ratio"].Raw != 1.5 {
		t.Errorf("Stored Breakdown mutated externally: %+v", got.Score.Breakdown)
	}
}
