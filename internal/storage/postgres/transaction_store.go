package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
// Transactions are write-once by network hash.
type TransactionStore struct {
	q Querier
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(q Querier) *TransactionStore {
	return &TransactionStore{q: q}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = "id, tx_hash, ledger, created_at, source_account_id, fee_charged, operation_count, memo, successful"

// Insert adds a transaction if its hash is unknown. A duplicate degrades to
// a no-op: created=false and t.ID set to the existing row.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.Transaction) (bool, error) {
	if t == nil || t.TxHash == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO transactions (
			tx_hash, ledger, created_at, source_account_id, fee_charged, operation_count, memo, successful
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING id
	`,
		t.TxHash,
		t.Ledger,
		t.CreatedAt,
		t.SourceAccountID,
		t.FeeCharged,
		t.OperationCount,
		t.Memo,
		t.Successful,
	)

	err := row.Scan(&t.ID)
	if err == nil {
		return true, nil
	}
	if !isNotFoundError(err) {
		return false, fmt.Errorf("insert transaction: %w", err)
	}

	// Conflict: resolve the existing row id.
	existing, err := s.GetByHash(ctx, t.TxHash)
	if err != nil {
		return false, fmt.Errorf("resolve existing transaction: %w", err)
	}
	t.ID = existing.ID
	return false, nil
}

// GetByHash retrieves a transaction by network hash. Returns ErrNotFound if absent.
func (s *TransactionStore) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	row := s.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE tx_hash = $1`, hash)
	return scanTransaction(row)
}

// GetByID retrieves a transaction by row id. Returns ErrNotFound if absent.
func (s *TransactionStore) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := s.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.TxHash,
		&t.Ledger,
		&t.CreatedAt,
		&t.SourceAccountID,
		&t.FeeCharged,
		&t.OperationCount,
		&t.Memo,
		&t.Successful,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction row: %w", err)
	}
	return &t, nil
}
