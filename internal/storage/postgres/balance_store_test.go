package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func insertSnapshot(t *testing.T, s *storage.Stores, accountID int64, assetID *int64, balance string, at time.Time) {
	t.Helper()
	b := &domain.AccountBalance{
		AccountID:  accountID,
		AssetID:    assetID,
		Balance:    decimal.RequireFromString(balance),
		SnapshotAt: at,
	}
	require.NoError(t, s.Balances.Insert(context.Background(), b))
	assert.NotZero(t, b.ID)
}

func TestBalanceStore_LatestForAssetPicksNewestPerAccount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	asset, _, err := stores.Assets.GetOrCreate(ctx, "USDC", "GISSUER", "credit_alphanum4", nil)
	require.NoError(t, err)

	whale := seedAccount(t, stores, "GWHALE")
	minnow := seedAccount(t, stores, "GMINNOW")

	// Snapshots are append-only: the stale whale balance must lose to the
	// current one.
	insertSnapshot(t, stores, whale.ID, &asset.ID, "50000", now.Add(-2*time.Hour))
	insertSnapshot(t, stores, whale.ID, &asset.ID, "9000", now.Add(-time.Minute))
	insertSnapshot(t, stores, minnow.ID, &asset.ID, "1000", now.Add(-time.Minute))

	latest, err := stores.Balances.LatestForAsset(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	// Ordered by balance descending.
	assert.Equal(t, whale.ID, latest[0].AccountID)
	assert.True(t, latest[0].Balance.Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, minnow.ID, latest[1].AccountID)
	assert.True(t, latest[1].Balance.Equal(decimal.NewFromInt(1000)))
}

func TestBalanceStore_LatestForAssetTieBreaksByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	asset, _, err := stores.Assets.GetOrCreate(ctx, "TIE", "GISSUER", "credit_alphanum4", nil)
	require.NoError(t, err)
	account := seedAccount(t, stores, "GACCT")

	// Two snapshots at the same instant: the higher id wins.
	insertSnapshot(t, stores, account.ID, &asset.ID, "100", at)
	insertSnapshot(t, stores, account.ID, &asset.ID, "200", at)

	latest, err := stores.Balances.LatestForAsset(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.True(t, latest[0].Balance.Equal(decimal.NewFromInt(200)))
}

func TestAssetStore_GetOrCreateIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()

	first, created, err := stores.Assets.GetOrCreate(ctx, "USDC", "GISSUER", "credit_alphanum4", map[string]any{"home_domain": "centre.io"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := stores.Assets.GetOrCreate(ctx, "USDC", "GISSUER", "credit_alphanum4", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Same code under a different issuer is a different asset.
	other, created, err := stores.Assets.GetOrCreate(ctx, "USDC", "GOTHERISSUER", "credit_alphanum4", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}
