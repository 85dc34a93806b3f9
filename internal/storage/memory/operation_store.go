package memory

import (
	"context"
	"sort"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// OperationStore is an in-memory implementation of storage.OperationStore.
type OperationStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.OperationStore = (*OperationStore)(nil)

// Insert adds an operation if its op_id is unknown. On conflict it is a
// no-op returning created=false.
func (s *OperationStore) Insert(_ context.Context, op *domain.Operation) (bool, error) {
	if op.OpID == "" {
		return false, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if id, ok := s.db.opByOpID[op.OpID]; ok {
		op.ID = id
		return false, nil
	}

	s.db.opSeq++
	op.ID = s.db.opSeq
	copied := *op
	copied.Raw = cloneMeta(op.Raw)
	s.db.ops[op.ID] = &copied
	s.db.opByOpID[op.OpID] = op.ID
	return true, nil
}

// ListOutgoingTransfers returns operations sent by an account since the
// cutoff, restricted to successful transactions, ordered by created_at
// ascending.
func (s *OperationStore) ListOutgoingTransfers(_ context.Context, fromAccountID int64, since time.Time, paymentClassOnly bool) ([]*domain.Transfer, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*domain.Transfer
	for _, op := range s.db.ops {
		if op.FromAccountID == nil || *op.FromAccountID != fromAccountID {
			continue
		}
		if op.CreatedAt.Before(since) {
			continue
		}
		if paymentClassOnly && !domain.IsPaymentClass(op.Type) {
			continue
		}
		tx, ok := s.db.txs[op.TxID]
		if !ok || !tx.Successful {
			continue
		}
		copied := *op
		copied.Raw = cloneMeta(op.Raw)
		out = append(out, &domain.Transfer{
			Operation:    copied,
			TxHash:       tx.TxHash,
			Ledger:       tx.Ledger,
			TxSuccessful: tx.Successful,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// LatestActivityBefore returns the created_at of the most recent operation
// touching the account strictly before the given instant.
func (s *OperationStore) LatestActivityBefore(_ context.Context, accountID int64, before time.Time) (time.Time, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var latest time.Time
	found := false
	for _, op := range s.db.ops {
		touches := (op.FromAccountID != nil && *op.FromAccountID == accountID) ||
			(op.ToAccountID != nil && *op.ToAccountID == accountID)
		if !touches || !op.CreatedAt.Before(before) {
			continue
		}
		if !found || op.CreatedAt.After(latest) {
			latest = op.CreatedAt
			found = true
		}
	}
	if !found {
		return time.Time{}, storage.ErrNotFound
	}
	return latest, nil
}
