package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation represents a single Stellar operation. Write-once by op_id.
// Endpoint references are nil for operation types that have none; Raw keeps
// the complete Horizon record for later reprocessing.
// Corresponds to operations table in PostgreSQL.
type Operation struct {
	ID            int64
	OpID          string // network-assigned operation id, unique natural key
	TxID          int64
	Type          string
	FromAccountID *int64
	ToAccountID   *int64
	AssetID       *int64 // nil for the native asset
	Amount        *decimal.Decimal
	Raw           map[string]any
	CreatedAt     time.Time
}

// Payment-class operation types transfer an asset amount between accounts.
const (
	OpTypePayment                  = "payment"
	OpTypePathPaymentStrictSend    = "path_payment_strict_send"
	OpTypePathPaymentStrictReceive = "path_payment_strict_receive"
	OpTypeCreateAccount            = "create_account"
)

// PaymentClassTypes lists the operation types that feed the counterparty graph.
var PaymentClassTypes = []string{
	OpTypePayment,
	OpTypePathPaymentStrictSend,
	OpTypePathPaymentStrictReceive,
}

// IsPaymentClass reports whether opType transfers an asset between two accounts.
func IsPaymentClass(opType string) bool {
	switch opType {
	case OpTypePayment, OpTypePathPaymentStrictSend, OpTypePathPaymentStrictReceive:
		return true
	}
	return false
}

// Transfer is a read model joining an operation with its parent transaction
// context, used by rule evaluation.
type Transfer struct {
	Operation
	TxHash       string
	Ledger       int64
	TxSuccessful bool
}
