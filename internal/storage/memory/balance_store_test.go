package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
)

func TestBalanceStore_LatestForAsset(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	assetID := int64(1)

	insert := func(accountID int64, balance int64, at time.Time) {
		t.Helper()
		err := stores.Balances.Insert(ctx, &domain.AccountBalance{
			AccountID:  accountID,
			AssetID:    &assetID,
			Balance:    decimal.NewFromInt(balance),
			SnapshotAt: at,
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// Account 1: stale 500, then current 100. Account 2: current 300.
	insert(1, 500, now.Add(-time.Hour))
	insert(1, 100, now)
	insert(2, 300, now)

	// Another asset must not leak in.
	otherAsset := int64(2)
	err := stores.Balances.Insert(ctx, &domain.AccountBalance{
		AccountID: 3, AssetID: &otherAsset,
		Balance: decimal.NewFromInt(9999), SnapshotAt: now,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := stores.Balances.LatestForAsset(ctx, assetID)
	if err != nil {
		t.Fatalf("LatestForAsset failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].AccountID != 2 || !got[0].Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("First row mismatch: account %d balance %s", got[0].AccountID, got[0].Balance)
	}
	if got[1].AccountID != 1 || !got[1].Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Second row mismatch: account %d balance %s", got[1].AccountID, got[1].Balance)
	}
}

func TestBalanceStore_LatestForAssetTieBreaksByID(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	assetID := int64(1)

	for _, balance := range []int64{10, 20} {
		err := stores.Balances.Insert(ctx, &domain.AccountBalance{
			AccountID:  1,
			AssetID:    &assetID,
			Balance:    decimal.NewFromInt(balance),
			SnapshotAt: now,
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := stores.Balances.LatestForAsset(ctx, assetID)
	if err != nil {
		t.Fatalf("LatestForAsset failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	if !got[0].Balance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Tie not broken by max id: got %s", got[0].Balance)
	}
}
