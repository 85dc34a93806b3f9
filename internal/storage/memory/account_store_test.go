package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func TestAccountStore_UpsertCreatesThenMerges(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	acct, created, err := stores.Accounts.Upsert(ctx, "GABC", map[string]any{"home_domain": "example.org"}, t0)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true on first upsert")
	}
	if acct.FirstSeen != t0 || acct.LastSeen != t0 {
		t.Errorf("Seen timestamps mismatch: first=%v last=%v", acct.FirstSeen, acct.LastSeen)
	}

	// Second upsert merges metadata and bumps last_seen only.
	t1 := t0.Add(time.Hour)
	again, created, err := stores.Accounts.Upsert(ctx, "GABC", map[string]any{"threshold_low": 1}, t1)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if created {
		t.Error("Expected created=false on second upsert")
	}
	if again.ID != acct.ID {
		t.Errorf("ID changed across upserts: %d vs %d", again.ID, acct.ID)
	}
	if again.FirstSeen != t0 {
		t.Errorf("FirstSeen rewritten: got %v, want %v", again.FirstSeen, t0)
	}
	if again.LastSeen != t1 {
		t.Errorf("LastSeen not advanced: got %v, want %v", again.LastSeen, t1)
	}
	if again.Metadata["home_domain"] != "example.org" {
		t.Error("Earlier metadata key lost on merge")
	}
	if again.Metadata["threshold_low"] != 1 {
		t.Error("New metadata key missing after merge")
	}
}

func TestAccountStore_UpsertNeverRewindsLastSeen(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	t1 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	if _, _, err := stores.Accounts.Upsert(ctx, "GABC", nil, t1); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	acct, _, err := stores.Accounts.Upsert(ctx, "GABC", nil, t1.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if acct.LastSeen != t1 {
		t.Errorf("LastSeen rewound: got %v, want %v", acct.LastSeen, t1)
	}
}

func TestAccountStore_GetOrCreateRecordsProvenance(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	acct, created, err := stores.Accounts.GetOrCreate(ctx, "GXYZ", "operation", now)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true for unknown address")
	}
	if acct.Metadata["discovered_via"] != "operation" {
		t.Errorf("Missing discovery provenance: %v", acct.Metadata)
	}

	_, created, err = stores.Accounts.GetOrCreate(ctx, "GXYZ", "transaction", now)
	if err != nil {
		t.Fatalf("Second GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("Expected created=false for known address")
	}
}

func TestAccountStore_NotFound(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()

	if _, err := stores.Accounts.GetByAddress(ctx, "GMISSING"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := stores.Accounts.GetByID(ctx, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAccountStore_AddRiskScoreClamps(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()

	acct, _, err := stores.Accounts.Upsert(ctx, "GABC", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := stores.Accounts.AddRiskScore(ctx, acct.ID, 60); err != nil {
		t.Fatalf("AddRiskScore failed: %v", err)
	}
	if err := stores.Accounts.AddRiskScore(ctx, acct.ID, 60); err != nil {
		t.Fatalf("AddRiskScore failed: %v", err)
	}

	got, err := stores.Accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RiskScore != domain.MaxRiskScore {
		t.Errorf("Risk score not clamped: got %v, want %v", got.RiskScore, domain.MaxRiskScore)
	}
}

func TestAccountStore_ConcurrentUpserts(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := stores.Accounts.Upsert(ctx, "GABC", nil, now); err != nil {
				t.Errorf("Concurrent upsert failed: %v", err)
			}
		}()
	}
	wg.Wait()

	acct, err := stores.Accounts.GetByAddress(ctx, "GABC")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if acct.ID != 1 {
		t.Errorf("Concurrent upserts created duplicate rows: last id %d", acct.ID)
	}
}
