package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

func TestIngestJobStore_EnqueueAndClaim(t *testing.T) {
	store := NewIngestJobStore()
	ctx := context.Background()

	id1, err := store.Enqueue(ctx, "ws", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	id2, err := store.Enqueue(ctx, "ws", []byte(`{"a":2}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("IDs not increasing: %d then %d", id1, id2)
	}

	claimed, err := store.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("Expected 2 claimed jobs, got %d", len(claimed))
	}
	if claimed[0].ID != id1 || claimed[1].ID != id2 {
		t.Errorf("Claim order wrong: %d, %d", claimed[0].ID, claimed[1].ID)
	}
	for _, job := range claimed {
		if job.Status != domain.JobProcessing {
			t.Errorf("Job %d not marked processing: %s", job.ID, job.Status)
		}
	}

	// A second claim sees nothing pending.
	again, err := store.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Second claim failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected no jobs on second claim, got %d", len(again))
	}
}

func TestIngestJobStore_ClaimLimit(t *testing.T) {
	store := NewIngestJobStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Enqueue(ctx, "ws", []byte(`{}`)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	claimed, err := store.Claim(ctx, 3)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 3 {
		t.Errorf("Expected 3 claimed jobs, got %d", len(claimed))
	}
}

func TestIngestJobStore_MarkDoneAndFailed(t *testing.T) {
	store := NewIngestJobStore()
	ctx := context.Background()

	id, err := store.Enqueue(ctx, "ws", []byte(`{}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Claim(ctx, 1); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if err := store.MarkDone(ctx, id); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	id2, err := store.Enqueue(ctx, "ws", []byte(`{}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := store.Claim(ctx, 1); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.MarkFailed(ctx, id2, "bad payload"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	// Neither done nor failed jobs are reclaimed.
	claimed, err := store.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Errorf("Expected no claimable jobs, got %d", len(claimed))
	}

	if err := store.MarkDone(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestIngestJobStore_InvalidInput(t *testing.T) {
	store := NewIngestJobStore()
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, "", []byte(`{}`)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty source, got %v", err)
	}
	if _, err := store.Enqueue(ctx, "ws", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty payload, got %v", err)
	}
	if _, err := store.Claim(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero limit, got %v", err)
	}
}
