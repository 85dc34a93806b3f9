package memory

import (
	"context"
	"sort"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
type BalanceStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// Insert appends a snapshot, filling b.ID.
func (s *BalanceStore) Insert(_ context.Context, b *domain.AccountBalance) error {
	if b.AccountID == 0 {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.balanceSeq++
	b.ID = s.db.balanceSeq
	copied := *b
	s.db.balances = append(s.db.balances, &copied)
	return nil
}

// LatestForAsset returns the latest snapshot per account for one asset,
// ordered by balance descending.
func (s *BalanceStore) LatestForAsset(_ context.Context, assetID int64) ([]*domain.AccountBalance, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	latest := make(map[int64]*domain.AccountBalance)
	for _, b := range s.db.balances {
		if b.AssetID == nil || *b.AssetID != assetID {
			continue
		}
		cur, ok := latest[b.AccountID]
		if !ok || b.SnapshotAt.After(cur.SnapshotAt) ||
			(b.SnapshotAt.Equal(cur.SnapshotAt) && b.ID > cur.ID) {
			latest[b.AccountID] = b
		}
	}

	out := make([]*domain.AccountBalance, 0, len(latest))
	for _, b := range latest {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Balance.GreaterThan(out[j].Balance)
	})
	return out, nil
}
