package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stellar-sentinel/internal/storage"
)

// Querier is the subset of pgx execution methods shared by pgxpool.Pool and
// pgx.Tx. Stores are built against it so the same code runs standalone or
// inside a batch transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// NewStores builds the full store bundle bound to q.
func NewStores(q Querier) *storage.Stores {
	return &storage.Stores{
		Accounts:     NewAccountStore(q),
		Assets:       NewAssetStore(q),
		Balances:     NewBalanceStore(q),
		Transactions: NewTransactionStore(q),
		Operations:   NewOperationStore(q),
		Edges:        NewEdgeStore(q),
		Checkpoints:  NewCheckpointStore(q),
		Watchlists:   NewWatchlistStore(q),
		Alerts:       NewAlertStore(q),
		Flags:        NewFlagStore(q),
	}
}

// Stores returns a bundle bound to the pool itself, for reads and
// single-statement writes outside a batch.
func (p *Pool) Stores() *storage.Stores {
	return NewStores(p)
}

// Compile-time interface check.
var _ storage.TxRunner = (*Pool)(nil)

// RunInTx executes fn against a transaction-bound store bundle. All writes
// commit together; any error rolls the whole batch back.
func (p *Pool) RunInTx(ctx context.Context, fn func(s *storage.Stores) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewStores(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation
)

// isDuplicateKeyError checks if error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
