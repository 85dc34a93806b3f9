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

// EdgeStore implements storage.EdgeStore using PostgreSQL. Accumulation is a
// single conflict-resolving statement, so concurrent writers on the same key
// never lose counter updates.
type EdgeStore struct {
	q Querier
}

// NewEdgeStore creates a new EdgeStore.
func NewEdgeStore(q Querier) *EdgeStore {
	return &EdgeStore{q: q}
}

// Compile-time interface check.
var _ storage.EdgeStore = (*EdgeStore)(nil)

const edgeColumns = "id, from_account_id, to_account_id, asset_id, tx_count, total_amount, last_seen"

// Accumulate increments the (from, to, asset) edge by one transfer of the
// given amount, creating it if absent.
func (s *EdgeStore) Accumulate(ctx context.Context, fromAccountID, toAccountID int64, assetID *int64, amount decimal.Decimal, seenAt time.Time) error {
	if fromAccountID == 0 || toAccountID == 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO counterparty_edges (from_account_id, to_account_id, asset_id, tx_count, total_amount, last_seen)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (from_account_id, to_account_id, COALESCE(asset_id, 0)) DO UPDATE
		SET tx_count = counterparty_edges.tx_count + 1,
		    total_amount = counterparty_edges.total_amount + EXCLUDED.total_amount,
		    last_seen = GREATEST(counterparty_edges.last_seen, EXCLUDED.last_seen)
	`, fromAccountID, toAccountID, assetID, amount, seenAt)
	if err != nil {
		return fmt.Errorf("accumulate edge: %w", err)
	}
	return nil
}

// Get retrieves one edge. Returns ErrNotFound if absent.
func (s *EdgeStore) Get(ctx context.Context, fromAccountID, toAccountID int64, assetID *int64) (*domain.CounterpartyEdge, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+edgeColumns+`
		FROM counterparty_edges
		WHERE from_account_id = $1 AND to_account_id = $2 AND COALESCE(asset_id, 0) = COALESCE($3, 0)
	`, fromAccountID, toAccountID, assetID)

	edge, err := scanEdge(row)
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// ListTouchingAccount returns edges where the account is either endpoint and
// last_seen is at or after the cutoff, ordered by last_seen descending.
func (s *EdgeStore) ListTouchingAccount(ctx context.Context, accountID int64, since time.Time) ([]*domain.CounterpartyEdge, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+edgeColumns+`
		FROM counterparty_edges
		WHERE (from_account_id = $1 OR to_account_id = $1)
		  AND last_seen >= $2
		ORDER BY last_seen DESC, id DESC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("list edges touching account: %w", err)
	}
	defer rows.Close()

	var edges []*domain.CounterpartyEdge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge rows: %w", err)
	}
	return edges, nil
}

func scanEdge(row pgx.Row) (*domain.CounterpartyEdge, error) {
	var edge domain.CounterpartyEdge
	err := row.Scan(
		&edge.ID,
		&edge.FromAccountID,
		&edge.ToAccountID,
		&edge.AssetID,
		&edge.TxCount,
		&edge.TotalAmount,
		&edge.LastSeen,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan edge row: %w", err)
	}
	return &edge, nil
}
