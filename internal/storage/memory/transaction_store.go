package memory

import (
	"context"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a transaction if its hash is unknown. On conflict it is a
// no-op returning created=false with t.ID set to the existing row.
func (s *TransactionStore) Insert(_ context.Context, t *domain.Transaction) (bool, error) {
	if t.TxHash == "" {
		return false, storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if id, ok := s.db.txByHash[t.TxHash]; ok {
		t.ID = id
		return false, nil
	}

	s.db.txSeq++
	t.ID = s.db.txSeq
	copied := *t
	s.db.txs[t.ID] = &copied
	s.db.txByHash[t.TxHash] = t.ID
	return true, nil
}

// GetByHash retrieves a transaction by network hash. Returns ErrNotFound if absent.
func (s *TransactionStore) GetByHash(_ context.Context, hash string) (*domain.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.txByHash[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.db.txs[id]
	return &copied, nil
}

// GetByID retrieves a transaction by row id. Returns ErrNotFound if absent.
func (s *TransactionStore) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, ok := s.db.txs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *t
	return &copied, nil
}
