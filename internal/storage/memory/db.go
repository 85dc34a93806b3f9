package memory

import (
	"context"
	"sync"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// DB holds every in-memory table behind one lock so the store bundle behaves
// like a single database. Used by unit tests and the -use-memory mode.
type DB struct {
	mu sync.RWMutex

	accountSeq        int64
	accounts          map[int64]*domain.Account
	accountsByAddress map[string]int64

	assetSeq    int64
	assets      map[int64]*domain.Asset
	assetsByKey map[string]int64 // code|issuer

	balanceSeq int64
	balances   []*domain.AccountBalance

	txSeq    int64
	txs      map[int64]*domain.Transaction
	txByHash map[string]int64

	opSeq    int64
	ops      map[int64]*domain.Operation
	opByOpID map[string]int64

	edgeSeq int64
	edges   map[edgeKey]*domain.CounterpartyEdge

	checkpoints map[string]*domain.Checkpoint

	watchlistSeq    int64
	watchlists      map[int64]*domain.Watchlist
	watchlistByName map[string]int64
	memberSeq       int64
	members         []*domain.WatchlistMember

	alertSeq int64
	alerts   []*domain.Alert
	flagSeq  int64
	flags    []*domain.Flag

	// txMu serializes RunInTx batches. Memory batches are not rolled back on
	// failure; durability tests against partial batches run on postgres.
	txMu sync.Mutex
}

type edgeKey struct {
	from  int64
	to    int64
	asset int64 // 0 for the native asset
}

// NewDB creates an empty in-memory database with the default ingestion
// streams seeded at cursor "now", mirroring the schema migrations.
func NewDB() *DB {
	db := &DB{
		accounts:          make(map[int64]*domain.Account),
		accountsByAddress: make(map[string]int64),
		assets:            make(map[int64]*domain.Asset),
		assetsByKey:       make(map[string]int64),
		txs:               make(map[int64]*domain.Transaction),
		txByHash:          make(map[string]int64),
		ops:               make(map[int64]*domain.Operation),
		opByOpID:          make(map[string]int64),
		edges:             make(map[edgeKey]*domain.CounterpartyEdge),
		checkpoints:       make(map[string]*domain.Checkpoint),
		watchlists:        make(map[int64]*domain.Watchlist),
		watchlistByName:   make(map[string]int64),
	}
	now := time.Now().UTC()
	for _, stream := range []string{domain.StreamTransactions, domain.StreamOperations} {
		db.checkpoints[stream] = &domain.Checkpoint{
			StreamName:      stream,
			LastPagingToken: "now",
			UpdatedAt:       now,
		}
	}
	return db
}

// Stores returns a store bundle backed by this database.
func (db *DB) Stores() *storage.Stores {
	return &storage.Stores{
		Accounts:     &AccountStore{db: db},
		Assets:       &AssetStore{db: db},
		Balances:     &BalanceStore{db: db},
		Transactions: &TransactionStore{db: db},
		Operations:   &OperationStore{db: db},
		Edges:        &EdgeStore{db: db},
		Checkpoints:  &CheckpointStore{db: db},
		Watchlists:   &WatchlistStore{db: db},
		Alerts:       &AlertStore{db: db},
		Flags:        &FlagStore{db: db},
	}
}

// Compile-time interface check.
var _ storage.TxRunner = (*DB)(nil)

// RunInTx serializes fn against the database. There is no rollback; each
// store write is individually consistent and the checkpoint is written last
// by callers, so crash-safety semantics still hold for cursors.
func (db *DB) RunInTx(_ context.Context, fn func(s *storage.Stores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(db.Stores())
}

// cloneMeta copies a metadata map so stored state cannot be mutated by
// callers.
func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
