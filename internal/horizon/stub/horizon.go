package stub

import (
	"context"

	"stellar-sentinel/internal/horizon"
)

// Client implements horizon.Client for testing. Pages are served from
// in-memory slices kept in ascending paging-token order; setting Err makes
// every call fail with it, simulating an unavailable upstream.
type Client struct {
	Accounts     map[string]*horizon.AccountRecord
	TxPages      []horizon.TransactionRecord
	OpPages      []horizon.OperationRecord
	TxByHash     map[string]*horizon.TransactionRecord
	OpsByTxHash  map[string][]horizon.OperationRecord
	TxsByAccount map[string][]horizon.TransactionRecord
	Err          error
}

// Compile-time interface check.
var _ horizon.Client = (*Client)(nil)

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Accounts:     make(map[string]*horizon.AccountRecord),
		TxByHash:     make(map[string]*horizon.TransactionRecord),
		OpsByTxHash:  make(map[string][]horizon.OperationRecord),
		TxsByAccount: make(map[string][]horizon.TransactionRecord),
	}
}

// Account retrieves an account from the stub store.
func (c *Client) Account(_ context.Context, address string) (*horizon.AccountRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	account, ok := c.Accounts[address]
	if !ok {
		return nil, horizon.ErrAccountNotFound
	}
	return account, nil
}

// afterCursor reports whether token sorts after cursor. The "now" sentinel
// and the empty cursor both read from the start of the stub's backlog.
func afterCursor(token, cursor string) bool {
	if cursor == "" || cursor == "now" {
		return true
	}
	if len(token) != len(cursor) {
		return len(token) > len(cursor)
	}
	return token > cursor
}

// Transactions serves the next ascending transaction page after cursor.
func (c *Client) Transactions(_ context.Context, cursor string, limit int) ([]horizon.TransactionRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	var page []horizon.TransactionRecord
	for _, record := range c.TxPages {
		if !afterCursor(record.PagingToken, cursor) {
			continue
		}
		page = append(page, record)
		if limit > 0 && len(page) == limit {
			break
		}
	}
	return page, nil
}

// Operations serves the next ascending operation page after cursor.
func (c *Client) Operations(_ context.Context, cursor string, limit int) ([]horizon.OperationRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	var page []horizon.OperationRecord
	for _, record := range c.OpPages {
		if !afterCursor(record.PagingToken, cursor) {
			continue
		}
		page = append(page, record)
		if limit > 0 && len(page) == limit {
			break
		}
	}
	return page, nil
}

// TransactionByHash retrieves a transaction from the stub store.
func (c *Client) TransactionByHash(_ context.Context, hash string) (*horizon.TransactionRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	record, ok := c.TxByHash[hash]
	if !ok {
		return nil, horizon.ErrNotFound
	}
	return record, nil
}

// TransactionOperations retrieves a transaction's operations from the stub store.
func (c *Client) TransactionOperations(_ context.Context, hash string) ([]horizon.OperationRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.OpsByTxHash[hash], nil
}

// AccountTransactions retrieves an account's recent transactions from the stub store.
func (c *Client) AccountTransactions(_ context.Context, address string, limit int) ([]horizon.TransactionRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	records := c.TxsByAccount[address]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// AddTransaction adds a transaction to the stream backlog and hash lookup.
func (c *Client) AddTransaction(record horizon.TransactionRecord) {
	c.TxPages = append(c.TxPages, record)
	copied := record
	c.TxByHash[record.Hash] = &copied
}

// AddOperation adds an operation to the stream backlog and per-transaction lookup.
func (c *Client) AddOperation(record horizon.OperationRecord) {
	c.OpPages = append(c.OpPages, record)
	c.OpsByTxHash[record.TransactionHash] = append(c.OpsByTxHash[record.TransactionHash], record)
}
