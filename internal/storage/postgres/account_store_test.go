package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func TestAccountStore_UpsertCreatesAndMerges(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	seen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	account, created, err := stores.Accounts.Upsert(ctx, "GADDR1", map[string]any{"sequence": "100"}, seen)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "GADDR1", account.Address)
	assert.Equal(t, "100", account.Metadata["sequence"])
	assert.Equal(t, float64(0), account.RiskScore)

	// Second upsert merges metadata and bumps last_seen.
	later := seen.Add(time.Hour)
	account, created, err = stores.Accounts.Upsert(ctx, "GADDR1", map[string]any{"subentry_count": float64(3)}, later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "100", account.Metadata["sequence"])
	assert.Equal(t, float64(3), account.Metadata["subentry_count"])
	assert.WithinDuration(t, later, account.LastSeen, time.Second)

	// A stale upsert never rewinds last_seen.
	account, _, err = stores.Accounts.Upsert(ctx, "GADDR1", nil, seen.Add(-time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, later, account.LastSeen, time.Second)
}

func TestAccountStore_GetOrCreateRecordsProvenance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()

	account, created, err := stores.Accounts.GetOrCreate(ctx, "GADDR2", "operation", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "operation", account.Metadata["discovered_via"])

	// Resolving again returns the same row without clobbering metadata.
	again, created, err := stores.Accounts.GetOrCreate(ctx, "GADDR2", "transaction", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, "operation", again.Metadata["discovered_via"])
}

func TestAccountStore_GetByAddressNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := pool.Stores().Accounts.GetByAddress(context.Background(), "GNOPE")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountStore_AddRiskScoreClamps(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	account := seedAccount(t, stores, "GRISK")

	require.NoError(t, stores.Accounts.AddRiskScore(ctx, account.ID, 60))
	require.NoError(t, stores.Accounts.AddRiskScore(ctx, account.ID, 60))

	got, err := stores.Accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRiskScore, got.RiskScore)

	err = stores.Accounts.AddRiskScore(ctx, 99999, 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountStore_ConcurrentUpsertsSingleRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := stores.Accounts.Upsert(ctx, "GRACE", nil, time.Now().UTC())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err, "concurrent upsert surfaced an error")
	}

	account, err := stores.Accounts.GetByAddress(ctx, "GRACE")
	require.NoError(t, err)
	assert.NotZero(t, account.ID)
}
