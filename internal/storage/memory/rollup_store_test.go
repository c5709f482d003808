package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

func TestRollupStore_InsertBulkAndGet(t *testing.T) {
	store := NewRollupStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.VolumeRollup{
		{TokenID: "tok1", HourStart: 7200000, Volume: 500, TradeCount: 5},
		{TokenID: "tok1", HourStart: 3600000, Volume: 300, TradeCount: 3},
		{TokenID: "tok2", HourStart: 3600000, Volume: 100, TradeCount: 1},
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByToken(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rollups, got %d", len(got))
	}
	if got[0].HourStart != 3600000 || got[1].HourStart != 7200000 {
		t.Errorf("Wrong ordering: %d, %d", got[0].HourStart, got[1].HourStart)
	}
}

func TestRollupStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewRollupStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.VolumeRollup{
		{TokenID: "tok1", HourStart: 3600000, Volume: 300},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.VolumeRollup{
		{TokenID: "tok1", HourStart: 7200000, Volume: 500},
		{TokenID: "tok1", HourStart: 3600000, Volume: 999},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Nothing from the failed batch may have landed.
	got, err := store.GetByToken(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 1 || got[0].Volume != 300 {
		t.Errorf("Failed batch partially applied: %+v", got)
	}
}

func TestRollupStore_UnknownTokenEmpty(t *testing.T) {
	store := NewRollupStore()
	ctx := context.Background()

	got, err := store.GetByToken(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d", len(got))
	}
}
