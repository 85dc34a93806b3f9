package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func TestRunInTx_CommitsBatchWithCheckpoint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	stores := pool.Stores()
	source := seedAccount(t, stores, "GSOURCE")

	err := pool.RunInTx(ctx, func(s *storage.Stores) error {
		tx := &domain.Transaction{
			TxHash:          "hash_batch",
			Ledger:          500,
			CreatedAt:       time.Now().UTC(),
			SourceAccountID: source.ID,
			Successful:      true,
		}
		if _, err := s.Transactions.Insert(ctx, tx); err != nil {
			return err
		}
		return s.Checkpoints.Advance(ctx, domain.StreamTransactions, "500", ptr(int64(500)))
	})
	require.NoError(t, err)

	_, err = stores.Transactions.GetByHash(ctx, "hash_batch")
	require.NoError(t, err)

	cp, err := stores.Checkpoints.Get(ctx, domain.StreamTransactions)
	require.NoError(t, err)
	assert.Equal(t, "500", cp.LastPagingToken)
}

func TestRunInTx_RollsBackEntityAndCheckpointTogether(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	stores := pool.Stores()
	source := seedAccount(t, stores, "GSOURCE")

	boom := errors.New("batch failure")
	err := pool.RunInTx(ctx, func(s *storage.Stores) error {
		tx := &domain.Transaction{
			TxHash:          "hash_doomed",
			Ledger:          600,
			CreatedAt:       time.Now().UTC(),
			SourceAccountID: source.ID,
			Successful:      true,
		}
		if _, err := s.Transactions.Insert(ctx, tx); err != nil {
			return err
		}
		if err := s.Checkpoints.Advance(ctx, domain.StreamTransactions, "600", nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither the entity nor the checkpoint advance survived.
	_, err = stores.Transactions.GetByHash(ctx, "hash_doomed")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cp, err := stores.Checkpoints.Get(ctx, domain.StreamTransactions)
	require.NoError(t, err)
	assert.Equal(t, "now", cp.LastPagingToken)
}
