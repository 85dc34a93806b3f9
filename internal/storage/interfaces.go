package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
)

// AccountStore provides access to accounts storage. All writes are
// conflict-tolerant: concurrent upserts on the same address must not surface
// duplicate-key errors or create duplicate rows.
type AccountStore interface {
	// Upsert creates the account on first sighting or merges metadata and
	// bumps last_seen on subsequent ones. Returns the persisted account and
	// whether it was created.
	Upsert(ctx context.Context, address string, metadata map[string]any, seenAt time.Time) (*domain.Account, bool, error)

	// GetOrCreate resolves an address to an account, creating a minimal row
	// (risk_score 0, discovery provenance in metadata) if absent.
	GetOrCreate(ctx context.Context, address, discoveredVia string, seenAt time.Time) (*domain.Account, bool, error)

	// GetByID retrieves an account by row id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.Account, error)

	// GetByAddress retrieves an account by address. Returns ErrNotFound if absent.
	GetByAddress(ctx context.Context, address string) (*domain.Account, error)

	// AddRiskScore increases the account's risk score by delta, clamped to 100.
	AddRiskScore(ctx context.Context, id int64, delta float64) error
}

// AssetStore provides access to assets storage. The native asset is never
// materialized; callers pass a nil asset reference for it.
type AssetStore interface {
	// GetOrCreate resolves (code, issuer) to an asset, creating it if absent.
	GetOrCreate(ctx context.Context, code, issuer, assetType string, metadata map[string]any) (*domain.Asset, bool, error)

	// GetByID retrieves an asset by row id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)

	// List returns all known assets.
	List(ctx context.Context) ([]*domain.Asset, error)
}

// BalanceStore provides access to append-only balance snapshots.
type BalanceStore interface {
	// Insert appends a snapshot. Never conflicts.
	Insert(ctx context.Context, b *domain.AccountBalance) error

	// LatestForAsset returns the latest snapshot per account for one asset,
	// ordered by balance descending. Ties on snapshot_at break by max id.
	LatestForAsset(ctx context.Context, assetID int64) ([]*domain.AccountBalance, error)
}

// TransactionStore provides write-once access to transactions.
type TransactionStore interface {
	// Insert adds a transaction if its hash is unknown. On conflict it is a
	// no-op returning created=false with t.ID set to the existing row.
	Insert(ctx context.Context, t *domain.Transaction) (bool, error)

	// GetByHash retrieves a transaction by network hash. Returns ErrNotFound if absent.
	GetByHash(ctx context.Context, hash string) (*domain.Transaction, error)

	// GetByID retrieves a transaction by row id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
}

// OperationStore provides write-once access to operations plus the windowed
// queries rule evaluation needs.
type OperationStore interface {
	// Insert adds an operation if its op_id is unknown. On conflict it is a
	// no-op returning created=false.
	Insert(ctx context.Context, op *domain.Operation) (bool, error)

	// ListOutgoingTransfers returns operations sent by an account since the
	// cutoff, joined with parent transaction context, restricted to
	// successful transactions and ordered by created_at ascending. When
	// paymentClassOnly is set, only payment-class operation types are
	// returned.
	ListOutgoingTransfers(ctx context.Context, fromAccountID int64, since time.Time, paymentClassOnly bool) ([]*domain.Transfer, error)

	// LatestActivityBefore returns the created_at of the most recent
	// operation touching the account (either endpoint) strictly before the
	// given instant, or ErrNotFound when the account has no earlier activity.
	LatestActivityBefore(ctx context.Context, accountID int64, before time.Time) (time.Time, error)
}

// EdgeStore maintains the counterparty graph.
type EdgeStore interface {
	// Accumulate increments the (from, to, asset) edge by one transfer of the
	// given amount, creating it if absent. Atomic under concurrent
	// accumulation on the same key; counters never lose updates.
	Accumulate(ctx context.Context, fromAccountID, toAccountID int64, assetID *int64, amount decimal.Decimal, seenAt time.Time) error

	// Get retrieves one edge. Returns ErrNotFound if absent.
	Get(ctx context.Context, fromAccountID, toAccountID int64, assetID *int64) (*domain.CounterpartyEdge, error)

	// ListTouchingAccount returns edges where the account is either endpoint
	// and last_seen is at or after the cutoff.
	ListTouchingAccount(ctx context.Context, accountID int64, since time.Time) ([]*domain.CounterpartyEdge, error)
}

// CheckpointStore persists per-stream ingestion cursors. The cursor only
// advances; a crash resumes from the last committed checkpoint.
type CheckpointStore interface {
	// Get retrieves the checkpoint for a stream. Returns ErrNotFound if absent.
	Get(ctx context.Context, stream string) (*domain.Checkpoint, error)

	// Advance moves the stream cursor forward and clears error bookkeeping.
	// A token that would rewind the cursor is ignored.
	Advance(ctx context.Context, stream, pagingToken string, ledger *int64) error

	// RecordError increments the stream's rolling error counter and stores
	// the message, leaving the cursor untouched.
	RecordError(ctx context.Context, stream, message string) error
}

// WatchlistStore manages watchlists and membership.
type WatchlistStore interface {
	// CreateWatchlist adds a named watchlist. Returns ErrDuplicateKey if the
	// name exists.
	CreateWatchlist(ctx context.Context, name string, description *string) (*domain.Watchlist, error)

	// GetWatchlistByName retrieves a watchlist by name. Returns ErrNotFound
	// if absent.
	GetWatchlistByName(ctx context.Context, name string) (*domain.Watchlist, error)

	// AddMember enrolls an account in a watchlist.
	AddMember(ctx context.Context, watchlistID, accountID int64, reason *string) (*domain.WatchlistMember, error)

	// ListWatchedAccounts returns the distinct accounts present in any
	// watchlist.
	ListWatchedAccounts(ctx context.Context) ([]*domain.Account, error)
}

// AlertStore persists alert-class rule output.
type AlertStore interface {
	// Insert adds an alert, filling a.ID.
	Insert(ctx context.Context, a *domain.Alert) error

	// HasRecent reports whether an alert of the same type and account with a
	// matching dedup key was created at or after the cutoff.
	HasRecent(ctx context.Context, alertType string, accountID *int64, dedupKey string, since time.Time) (bool, error)
}

// FlagStore persists flag-class rule output.
type FlagStore interface {
	// Insert adds a flag, filling f.ID.
	Insert(ctx context.Context, f *domain.Flag) error

	// HasRecent reports whether a flag of the same type and account with a
	// matching dedup key was created at or after the cutoff.
	HasRecent(ctx context.Context, flagType string, accountID int64, dedupKey string, since time.Time) (bool, error)
}

// Stores bundles every store interface. Ingestion cycles receive a
// transaction-bound bundle from a TxRunner so that batch writes and the
// checkpoint update commit atomically.
type Stores struct {
	Accounts     AccountStore
	Assets       AssetStore
	Balances     BalanceStore
	Transactions TransactionStore
	Operations   OperationStore
	Edges        EdgeStore
	Checkpoints  CheckpointStore
	Watchlists   WatchlistStore
	Alerts       AlertStore
	Flags        FlagStore
}

// TxRunner executes fn against a store bundle whose writes commit or roll
// back as one unit. The memory implementation provides isolation via a
// single-writer lock without rollback.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(s *Stores) error) error
}
