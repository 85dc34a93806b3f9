package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CounterpartyEdge is a weighted directed edge in the payment graph, keyed by
// (from_account, to_account, asset). AssetID is nil for the native asset.
// Counters only grow; the edge is mutated by accumulation, never replaced.
// Corresponds to counterparty_edges table in PostgreSQL.
type CounterpartyEdge struct {
	ID            int64
	FromAccountID int64
	ToAccountID   int64
	AssetID       *int64
	TxCount       int64
	TotalAmount   decimal.Decimal
	LastSeen      time.Time
}
