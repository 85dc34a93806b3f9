package postgres

import (
	"context"
	"fmt"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// CheckpointStore implements storage.CheckpointStore using PostgreSQL.
// Advancing and error bookkeeping are single conflict-resolving statements
// so concurrent cycles on the same stream cannot corrupt the cursor.
type CheckpointStore struct {
	q Querier
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(q Querier) *CheckpointStore {
	return &CheckpointStore{q: q}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Get retrieves the checkpoint for a stream. Returns ErrNotFound if absent.
func (s *CheckpointStore) Get(ctx context.Context, stream string) (*domain.Checkpoint, error) {
	row := s.q.QueryRow(ctx, `
		SELECT stream_name, last_paging_token, last_ledger, error_count, last_error, updated_at
		FROM ingestion_state
		WHERE stream_name = $1
	`, stream)

	var cp domain.Checkpoint
	err := row.Scan(
		&cp.StreamName,
		&cp.LastPagingToken,
		&cp.LastLedger,
		&cp.ErrorCount,
		&cp.LastError,
		&cp.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &cp, nil
}

// Advance moves the stream cursor forward and clears error bookkeeping.
// Horizon paging tokens are decimal strings, so (length, value) ordering is
// numeric ordering; a token that would rewind the cursor is ignored.
func (s *CheckpointStore) Advance(ctx context.Context, stream, pagingToken string, ledger *int64) error {
	if stream == "" || pagingToken == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO ingestion_state (stream_name, last_paging_token, last_ledger, error_count, last_error, updated_at)
		VALUES ($1, $2, $3, 0, NULL, NOW())
		ON CONFLICT (stream_name) DO UPDATE
		SET last_paging_token = EXCLUDED.last_paging_token,
		    last_ledger = COALESCE(EXCLUDED.last_ledger, ingestion_state.last_ledger),
		    error_count = 0,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE ingestion_state.last_paging_token = 'now'
		   OR (length(ingestion_state.last_paging_token), ingestion_state.last_paging_token)
		      <= (length(EXCLUDED.last_paging_token), EXCLUDED.last_paging_token)
	`, stream, pagingToken, ledger)
	if err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}
	return nil
}

// RecordError increments the stream's rolling error counter and stores the
// message, leaving the cursor untouched.
func (s *CheckpointStore) RecordError(ctx context.Context, stream, message string) error {
	if stream == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO ingestion_state (stream_name, last_paging_token, error_count, last_error, updated_at)
		VALUES ($1, 'now', 1, $2, NOW())
		ON CONFLICT (stream_name) DO UPDATE
		SET error_count = ingestion_state.error_count + 1,
		    last_error = EXCLUDED.last_error,
		    updated_at = NOW()
	`, stream, message)
	if err != nil {
		return fmt.Errorf("record checkpoint error: %w", err)
	}
	return nil
}
