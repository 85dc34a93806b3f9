package domain

import "time"

// Stream names for the two independent ingestion cursors.
const (
	StreamTransactions = "transactions_global"
	StreamOperations   = "operations_global"
)

// Checkpoint is the durable per-stream ingestion cursor. The paging token
// only ever advances; it is the sole resumption point after a crash.
// Corresponds to ingestion_state table in PostgreSQL.
type Checkpoint struct {
	StreamName      string
	LastPagingToken string
	LastLedger      *int64
	ErrorCount      int32
	LastError       *string
	UpdatedAt       time.Time
}
