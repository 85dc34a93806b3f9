package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// OperationStore implements storage.OperationStore using PostgreSQL.
// Operations are write-once by network op_id.
type OperationStore struct {
	q Querier
}

// NewOperationStore creates a new OperationStore.
func NewOperationStore(q Querier) *OperationStore {
	return &OperationStore{q: q}
}

// Compile-time interface check.
var _ storage.OperationStore = (*OperationStore)(nil)

// Insert adds an operation if its op_id is unknown. A duplicate degrades to
// a no-op returning created=false.
func (s *OperationStore) Insert(ctx context.Context, op *domain.Operation) (bool, error) {
	if op == nil || op.OpID == "" || op.TxID == 0 {
		return false, storage.ErrInvalidInput
	}
	if op.Raw == nil {
		op.Raw = map[string]any{}
	}

	var amount decimal.NullDecimal
	if op.Amount != nil {
		amount = decimal.NullDecimal{Decimal: *op.Amount, Valid: true}
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO operations (
			op_id, tx_id, type, from_account_id, to_account_id, asset_id, amount, raw, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (op_id) DO NOTHING
		RETURNING id
	`,
		op.OpID,
		op.TxID,
		op.Type,
		op.FromAccountID,
		op.ToAccountID,
		op.AssetID,
		amount,
		op.Raw,
		op.CreatedAt,
	)

	err := row.Scan(&op.ID)
	if err == nil {
		return true, nil
	}
	if !isNotFoundError(err) {
		return false, fmt.Errorf("insert operation: %w", err)
	}
	return false, nil
}

// ListOutgoingTransfers returns operations sent by an account since the
// cutoff, joined with parent transaction context. Only operations belonging
// to successful transactions are returned, ordered by created_at ascending.
func (s *OperationStore) ListOutgoingTransfers(ctx context.Context, fromAccountID int64, since time.Time, paymentClassOnly bool) ([]*domain.Transfer, error) {
	query := `
		SELECT o.id, o.op_id, o.tx_id, o.type, o.from_account_id, o.to_account_id,
		       o.asset_id, o.amount, o.raw, o.created_at,
		       t.tx_hash, t.ledger, t.successful
		FROM operations o
		JOIN transactions t ON o.tx_id = t.id
		WHERE o.from_account_id = $1
		  AND o.created_at >= $2
		  AND t.successful
	`
	args := []any{fromAccountID, since}
	if paymentClassOnly {
		query += ` AND o.type = ANY($3)`
		args = append(args, domain.PaymentClassTypes)
	}
	query += ` ORDER BY o.created_at ASC, o.id ASC`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outgoing transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// LatestActivityBefore returns the created_at of the most recent operation
// touching the account strictly before the given instant.
func (s *OperationStore) LatestActivityBefore(ctx context.Context, accountID int64, before time.Time) (time.Time, error) {
	row := s.q.QueryRow(ctx, `
		SELECT MAX(created_at)
		FROM operations
		WHERE (from_account_id = $1 OR to_account_id = $1)
		  AND created_at < $2
	`, accountID, before)

	var latest *time.Time
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("latest activity before: %w", err)
	}
	if latest == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return *latest, nil
}

func scanTransfers(rows pgx.Rows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer
	for rows.Next() {
		var tr domain.Transfer
		var amount decimal.NullDecimal
		err := rows.Scan(
			&tr.ID,
			&tr.OpID,
			&tr.TxID,
			&tr.Type,
			&tr.FromAccountID,
			&tr.ToAccountID,
			&tr.AssetID,
			&amount,
			&tr.Raw,
			&tr.CreatedAt,
			&tr.TxHash,
			&tr.Ledger,
			&tr.TxSuccessful,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		if amount.Valid {
			tr.Amount = &amount.Decimal
		}
		transfers = append(transfers, &tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return transfers, nil
}
