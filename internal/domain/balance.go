package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is an append-only balance snapshot for (account, asset).
// AssetID is nil for the native asset. Snapshots are never updated; the
// current balance per (account, asset) is the snapshot with the maximum
// SnapshotAt (ties broken by maximum ID).
// Corresponds to account_balances table in PostgreSQL.
type AccountBalance struct {
	ID                 int64
	AccountID          int64
	AssetID            *int64
	Balance            decimal.Decimal
	Limit              *decimal.Decimal
	BuyingLiabilities  decimal.Decimal
	SellingLiabilities decimal.Decimal
	SnapshotAt         time.Time
}
