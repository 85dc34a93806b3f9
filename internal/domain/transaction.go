package domain

import "time"

// Transaction represents a Stellar transaction. Write-once: the network hash
// is the natural key and duplicate ingestion is a no-op.
// Corresponds to transactions table in PostgreSQL.
type Transaction struct {
	ID              int64
	TxHash          string // 64-char hex, unique natural key
	Ledger          int64
	CreatedAt       time.Time
	SourceAccountID int64
	FeeCharged      int64
	OperationCount  int32
	Memo            *string
	Successful      bool
}
