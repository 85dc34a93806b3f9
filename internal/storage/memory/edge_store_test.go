package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/storage"
)

func TestEdgeStore_AccumulateCreatesThenIncrements(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	err := stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(10), now)
	if err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	err = stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(5), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	edge, err := stores.Edges.Get(ctx, 1, 2, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if edge.TxCount != 2 {
		t.Errorf("TxCount mismatch: got %d, want 2", edge.TxCount)
	}
	if !edge.TotalAmount.Equal(decimal.NewFromInt(15)) {
		t.Errorf("TotalAmount mismatch: got %s, want 15", edge.TotalAmount)
	}
	if edge.LastSeen != now.Add(time.Minute) {
		t.Errorf("LastSeen not advanced: %v", edge.LastSeen)
	}
}

func TestEdgeStore_NativeAndIssuedAreDistinctEdges(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	assetID := int64(7)

	if err := stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	if err := stores.Edges.Accumulate(ctx, 1, 2, &assetID, decimal.NewFromInt(3), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	native, err := stores.Edges.Get(ctx, 1, 2, nil)
	if err != nil {
		t.Fatalf("Get native failed: %v", err)
	}
	issued, err := stores.Edges.Get(ctx, 1, 2, &assetID)
	if err != nil {
		t.Fatalf("Get issued failed: %v", err)
	}
	if native.ID == issued.ID {
		t.Error("Native and issued transfers collapsed into one edge")
	}
	if native.TxCount != 1 || issued.TxCount != 1 {
		t.Errorf("Counts mixed across assets: native=%d issued=%d", native.TxCount, issued.TxCount)
	}
}

func TestEdgeStore_DirectionMatters(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	if _, err := stores.Edges.Get(ctx, 2, 1, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for reverse direction, got %v", err)
	}
}

func TestEdgeStore_ListTouchingAccount(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(1), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	if err := stores.Edges.Accumulate(ctx, 3, 1, nil, decimal.NewFromInt(1), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	if err := stores.Edges.Accumulate(ctx, 2, 3, nil, decimal.NewFromInt(1), now); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}
	// Stale edge, outside the window.
	if err := stores.Edges.Accumulate(ctx, 1, 4, nil, decimal.NewFromInt(1), now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	edges, err := stores.Edges.ListTouchingAccount(ctx, 1, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListTouchingAccount failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges touching account 1, got %d", len(edges))
	}
}

func TestEdgeStore_ConcurrentAccumulation(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stores.Edges.Accumulate(ctx, 1, 2, nil, decimal.NewFromInt(1), now); err != nil {
				t.Errorf("Concurrent accumulate failed: %v", err)
			}
		}()
	}
	wg.Wait()

	edge, err := stores.Edges.Get(ctx, 1, 2, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if edge.TxCount != 50 {
		t.Errorf("Lost updates under concurrency: got %d, want 50", edge.TxCount)
	}
	if !edge.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("TotalAmount mismatch: got %s, want 50", edge.TotalAmount)
	}
}
