package memory

import (
	"context"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	db *DB
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Get retrieves the checkpoint for a stream. Returns ErrNotFound if absent.
func (s *CheckpointStore) Get(_ context.Context, stream string) (*domain.Checkpoint, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	cp, ok := s.db.checkpoints[stream]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *cp
	return &copied, nil
}

// tokenRewinds reports whether candidate would move the cursor backwards.
// Paging tokens are decimal strings, so a shorter token is always smaller;
// equal lengths compare lexically. The "now" sentinel never blocks an advance.
func tokenRewinds(current, candidate string) bool {
	if current == "now" {
		return false
	}
	if len(candidate) != len(current) {
		return len(candidate) < len(current)
	}
	return candidate < current
}

// Advance moves the stream cursor forward and clears error bookkeeping. A
// token that would rewind the cursor is ignored.
func (s *CheckpointStore) Advance(_ context.Context, stream, pagingToken string, ledger *int64) error {
	if stream == "" || pagingToken == "" {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now().UTC()
	cp, ok := s.db.checkpoints[stream]
	if !ok {
		cp = &domain.Checkpoint{StreamName: stream}
		s.db.checkpoints[stream] = cp
	} else if tokenRewinds(cp.LastPagingToken, pagingToken) {
		return nil
	}

	cp.LastPagingToken = pagingToken
	if ledger != nil {
		v := *ledger
		cp.LastLedger = &v
	}
	cp.ErrorCount = 0
	cp.LastError = nil
	cp.UpdatedAt = now
	return nil
}

// RecordError increments the stream's rolling error counter and stores the
// message, leaving the cursor untouched.
func (s *CheckpointStore) RecordError(_ context.Context, stream, message string) error {
	if stream == "" {
		return storage.ErrInvalidInput
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cp, ok := s.db.checkpoints[stream]
	if !ok {
		cp = &domain.Checkpoint{StreamName: stream, LastPagingToken: "now"}
		s.db.checkpoints[stream] = cp
	}
	cp.ErrorCount++
	msg := message
	cp.LastError = &msg
	cp.UpdatedAt = time.Now().UTC()
	return nil
}
