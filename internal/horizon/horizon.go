package horizon

import (
	"context"
	"time"
)

// MaxPageLimit is the largest page size Horizon serves.
const MaxPageLimit = 200

// Client defines the Horizon read API surface used by ingestion. All calls
// are read-only; the client never touches ingestion state.
type Client interface {
	// Account retrieves one account with its balances. Returns
	// ErrAccountNotFound if the address is unknown upstream.
	Account(ctx context.Context, address string) (*AccountRecord, error)

	// Transactions retrieves a transaction page in ascending paging-token
	// order starting after cursor. An empty cursor starts from the oldest
	// available record; the "now" sentinel starts from the ledger head.
	Transactions(ctx context.Context, cursor string, limit int) ([]TransactionRecord, error)

	// Operations retrieves an operation page in ascending paging-token order
	// starting after cursor.
	Operations(ctx context.Context, cursor string, limit int) ([]OperationRecord, error)

	// TransactionByHash retrieves one transaction by network hash. Returns
	// ErrNotFound if unknown upstream.
	TransactionByHash(ctx context.Context, hash string) (*TransactionRecord, error)

	// TransactionOperations retrieves all operations of one transaction.
	TransactionOperations(ctx context.Context, hash string) ([]OperationRecord, error)

	// AccountTransactions retrieves the most recent transactions of one
	// account, newest first.
	AccountTransactions(ctx context.Context, address string, limit int) ([]TransactionRecord, error)
}

// AccountRecord is the Horizon account detail response.
type AccountRecord struct {
	ID                 string          `json:"id"`
	PagingToken        string          `json:"paging_token"`
	Sequence           string          `json:"sequence"`
	SubentryCount      int             `json:"subentry_count"`
	NumSponsoring      int             `json:"num_sponsoring"`
	NumSponsored       int             `json:"num_sponsored"`
	LastModifiedLedger int64           `json:"last_modified_ledger"`
	Flags              map[string]any  `json:"flags"`
	Balances           []BalanceRecord `json:"balances"`
}

// BalanceRecord is one entry of an account's balances array. Amounts stay as
// decimal strings until the upsert layer parses them.
type BalanceRecord struct {
	Balance            string `json:"balance"`
	Limit              string `json:"limit,omitempty"`
	BuyingLiabilities  string `json:"buying_liabilities"`
	SellingLiabilities string `json:"selling_liabilities"`
	AssetType          string `json:"asset_type"`
	AssetCode          string `json:"asset_code,omitempty"`
	AssetIssuer        string `json:"asset_issuer,omitempty"`
}

// Native reports whether the balance is in the network's native asset.
func (b BalanceRecord) Native() bool {
	return b.AssetType == "native"
}

// TransactionRecord is one Horizon transaction record. Each record carries
// its own pagination token.
type TransactionRecord struct {
	ID             string    `json:"id"`
	PagingToken    string    `json:"paging_token"`
	Hash           string    `json:"hash"`
	Ledger         int64     `json:"ledger"`
	CreatedAt      time.Time `json:"created_at"`
	SourceAccount  string    `json:"source_account"`
	FeeCharged     int64     `json:"fee_charged,string"`
	OperationCount int32     `json:"operation_count"`
	Memo           *string   `json:"memo,omitempty"`
	Successful     bool      `json:"successful"`
}

// OperationRecord is one Horizon operation record. Raw keeps the complete
// decoded record for durable storage alongside the typed fields.
type OperationRecord struct {
	ID              string    `json:"id"`
	PagingToken     string    `json:"paging_token"`
	TransactionHash string    `json:"transaction_hash"`
	Type            string    `json:"type"`
	CreatedAt       time.Time `json:"created_at"`

	// Payment-class fields.
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	AssetType   string `json:"asset_type,omitempty"`
	AssetCode   string `json:"asset_code,omitempty"`
	AssetIssuer string `json:"asset_issuer,omitempty"`
	Amount      string `json:"amount,omitempty"`

	// create_account fields.
	Funder          string `json:"funder,omitempty"`
	Account         string `json:"account,omitempty"`
	StartingBalance string `json:"starting_balance,omitempty"`

	Raw map[string]any `json:"-"`
}
