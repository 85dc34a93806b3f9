package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func TestCheckpointStore_SeededAtNow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()

	for _, stream := range []string{domain.StreamTransactions, domain.StreamOperations} {
		cp, err := stores.Checkpoints.Get(ctx, stream)
		require.NoError(t, err, "stream %s not seeded", stream)
		assert.Equal(t, "now", cp.LastPagingToken)
		assert.Nil(t, cp.LastLedger)
		assert.Zero(t, cp.ErrorCount)
	}

	_, err := stores.Checkpoints.Get(ctx, "unknown_stream")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCheckpointStore_AdvanceNeverRewinds(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	stream := domain.StreamTransactions

	require.NoError(t, stores.Checkpoints.Advance(ctx, stream, "200", ptr(int64(412))))

	cp, err := stores.Checkpoints.Get(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, "200", cp.LastPagingToken)
	require.NotNil(t, cp.LastLedger)
	assert.Equal(t, int64(412), *cp.LastLedger)

	// "99" is numerically smaller than "200" despite comparing higher as a
	// plain string; the tuple comparison must reject it.
	require.NoError(t, stores.Checkpoints.Advance(ctx, stream, "99", ptr(int64(400))))
	cp, err = stores.Checkpoints.Get(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, "200", cp.LastPagingToken)

	require.NoError(t, stores.Checkpoints.Advance(ctx, stream, "1000", nil))
	cp, err = stores.Checkpoints.Get(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, "1000", cp.LastPagingToken)
}

func TestCheckpointStore_RecordErrorAndClear(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	stores := pool.Stores()
	ctx := context.Background()
	stream := domain.StreamOperations

	require.NoError(t, stores.Checkpoints.RecordError(ctx, stream, "horizon timeout"))
	require.NoError(t, stores.Checkpoints.RecordError(ctx, stream, "horizon 503"))

	cp, err := stores.Checkpoints.Get(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, "now", cp.LastPagingToken, "errors must not move the cursor")
	assert.Equal(t, int32(2), cp.ErrorCount)
	require.NotNil(t, cp.LastError)
	assert.Equal(t, "horizon 503", *cp.LastError)

	// A successful advance clears the error bookkeeping.
	require.NoError(t, stores.Checkpoints.Advance(ctx, stream, "50", nil))
	cp, err = stores.Checkpoints.Get(ctx, stream)
	require.NoError(t, err)
	assert.Zero(t, cp.ErrorCount)
	assert.Nil(t, cp.LastError)
}
