package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// BalanceStore implements storage.BalanceStore using PostgreSQL. Snapshots
// are append-only history; inserts never conflict.
type BalanceStore struct {
	q Querier
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(q Querier) *BalanceStore {
	return &BalanceStore{q: q}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// Insert appends a snapshot, filling b.ID.
func (s *BalanceStore) Insert(ctx context.Context, b *domain.AccountBalance) error {
	if b == nil || b.AccountID == 0 {
		return storage.ErrInvalidInput
	}

	var limit decimal.NullDecimal
	if b.Limit != nil {
		limit = decimal.NullDecimal{Decimal: *b.Limit, Valid: true}
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO account_balances (
			account_id, asset_id, balance, trust_limit, buying_liabilities, selling_liabilities, snapshot_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		b.AccountID,
		b.AssetID,
		b.Balance,
		limit,
		b.BuyingLiabilities,
		b.SellingLiabilities,
		b.SnapshotAt,
	)

	if err := row.Scan(&b.ID); err != nil {
		return fmt.Errorf("insert balance snapshot: %w", err)
	}
	return nil
}

// LatestForAsset returns the most recent snapshot per account for one asset,
// ordered by balance descending. Ties on snapshot_at break by max id so the
// choice is deterministic.
func (s *BalanceStore) LatestForAsset(ctx context.Context, assetID int64) ([]*domain.AccountBalance, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, account_id, asset_id, balance, trust_limit, buying_liabilities, selling_liabilities, snapshot_at
		FROM (
			SELECT DISTINCT ON (account_id)
				id, account_id, asset_id, balance, trust_limit, buying_liabilities, selling_liabilities, snapshot_at
			FROM account_balances
			WHERE asset_id = $1
			ORDER BY account_id, snapshot_at DESC, id DESC
		) latest
		ORDER BY balance DESC, account_id ASC
	`, assetID)
	if err != nil {
		return nil, fmt.Errorf("latest balances for asset: %w", err)
	}
	defer rows.Close()

	return scanBalances(rows)
}

func scanBalances(rows pgx.Rows) ([]*domain.AccountBalance, error) {
	var balances []*domain.AccountBalance
	for rows.Next() {
		var b domain.AccountBalance
		var limit decimal.NullDecimal
		err := rows.Scan(
			&b.ID,
			&b.AccountID,
			&b.AssetID,
			&b.Balance,
			&limit,
			&b.BuyingLiabilities,
			&b.SellingLiabilities,
			&b.SnapshotAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		if limit.Valid {
			b.Limit = &limit.Decimal
		}
		balances = append(balances, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}
	return balances, nil
}
