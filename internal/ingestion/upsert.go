package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/horizon"
	"stellar-sentinel/internal/observability"
	"stellar-sentinel/internal/storage"
)

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// accountMetadata extracts the durable metadata fields from a Horizon
// account record.
func accountMetadata(record *horizon.AccountRecord) map[string]any {
	return map[string]any{
		"sequence":             record.Sequence,
		"subentry_count":       record.SubentryCount,
		"num_sponsoring":       record.NumSponsoring,
		"num_sponsored":        record.NumSponsored,
		"last_modified_ledger": record.LastModifiedLedger,
		"raw_data_snippet": map[string]any{
			"id":           record.ID,
			"paging_token": record.PagingToken,
			"flags":        record.Flags,
		},
	}
}

// resolveAsset maps a Horizon asset reference to a stored asset id. The
// native asset is never materialized; it resolves to a nil id.
func resolveAsset(ctx context.Context, tx *storage.Stores, assetType, code, issuer, discoveredVia string) (*int64, bool, error) {
	if assetType == "" || assetType == "native" {
		return nil, false, nil
	}

	asset, created, err := tx.Assets.GetOrCreate(ctx, code, issuer, assetType, map[string]any{
		"discovered_via": discoveredVia,
	})
	if err != nil {
		return nil, false, err
	}
	id := asset.ID
	return &id, created, nil
}

// balanceSnapshot builds an append-only snapshot from one balances entry.
func balanceSnapshot(accountID int64, assetID *int64, balance horizon.BalanceRecord, at time.Time) (*domain.AccountBalance, error) {
	value, err := parseAmount(balance.Balance)
	if err != nil {
		return nil, err
	}
	buying, err := parseAmount(balance.BuyingLiabilities)
	if err != nil {
		return nil, err
	}
	selling, err := parseAmount(balance.SellingLiabilities)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.AccountBalance{
		AccountID:          accountID,
		AssetID:            assetID,
		Balance:            value,
		BuyingLiabilities:  buying,
		SellingLiabilities: selling,
		SnapshotAt:         at,
	}
	if balance.Limit != "" {
		limit, err := parseAmount(balance.Limit)
		if err != nil {
			return nil, err
		}
		snapshot.Limit = &limit
	}
	return snapshot, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// upsertTransaction resolves the source account and stores the transaction
// if its hash is unknown. Returns (created, row id, error).
func upsertTransaction(ctx context.Context, tx *storage.Stores, record horizon.TransactionRecord) (bool, int64, error) {
	source, sourceCreated, err := tx.Accounts.GetOrCreate(ctx, record.SourceAccount, "transaction", record.CreatedAt)
	if err != nil {
		return false, 0, fmt.Errorf("resolve source account %s: %w", record.SourceAccount, err)
	}
	if sourceCreated {
		observability.RecordEntityCreated("account")
	}

	t := &domain.Transaction{
		TxHash:          record.Hash,
		Ledger:          record.Ledger,
		CreatedAt:       record.CreatedAt,
		SourceAccountID: source.ID,
		FeeCharged:      record.FeeCharged,
		OperationCount:  record.OperationCount,
		Memo:            record.Memo,
		Successful:      record.Successful,
	}
	created, err := tx.Transactions.Insert(ctx, t)
	if err != nil {
		return false, 0, fmt.Errorf("insert transaction %s: %w", record.Hash, err)
	}
	if created {
		observability.RecordEntityCreated("transaction")
	}
	return created, t.ID, nil
}

// upsertOperation stores one operation under its parent transaction.
// Payment-class operations resolve both endpoints and the asset and feed the
// counterparty graph; create_account resolves funder and funded account
// without an edge; anything else is stored raw with nil references.
func upsertOperation(ctx context.Context, tx *storage.Stores, txID int64, record horizon.OperationRecord) (bool, error) {
	op := &domain.Operation{
		OpID:      record.ID,
		TxID:      txID,
		Type:      record.Type,
		Raw:       record.Raw,
		CreatedAt: record.CreatedAt,
	}

	switch {
	case domain.IsPaymentClass(record.Type):
		if err := resolveEndpoints(ctx, tx, op, record.From, record.To, record.CreatedAt); err != nil {
			return false, err
		}
		assetID, assetCreated, err := resolveAsset(ctx, tx, record.AssetType, record.AssetCode, record.AssetIssuer, "operation")
		if err != nil {
			return false, err
		}
		if assetCreated {
			observability.RecordEntityCreated("asset")
		}
		op.AssetID = assetID

		amount, err := parseAmount(record.Amount)
		if err != nil {
			return false, fmt.Errorf("parse amount of op %s: %w", record.ID, err)
		}
		op.Amount = &amount

	case record.Type == domain.OpTypeCreateAccount:
		if err := resolveEndpoints(ctx, tx, op, record.Funder, record.Account, record.CreatedAt); err != nil {
			return false, err
		}
		amount, err := parseAmount(record.StartingBalance)
		if err != nil {
			return false, fmt.Errorf("parse starting balance of op %s: %w", record.ID, err)
		}
		op.Amount = &amount
	}

	created, err := tx.Operations.Insert(ctx, op)
	if err != nil {
		return false, fmt.Errorf("insert operation %s: %w", record.ID, err)
	}
	if !created {
		return false, nil
	}
	observability.RecordEntityCreated("operation")

	// The edge is fed once per stored operation, never on re-ingest.
	if domain.IsPaymentClass(op.Type) && op.FromAccountID != nil && op.ToAccountID != nil {
		err := tx.Edges.Accumulate(ctx, *op.FromAccountID, *op.ToAccountID, op.AssetID, *op.Amount, record.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("accumulate edge for op %s: %w", record.ID, err)
		}
	}
	return true, nil
}

func resolveEndpoints(ctx context.Context, tx *storage.Stores, op *domain.Operation, from, to string, seenAt time.Time) error {
	if from != "" {
		account, created, err := tx.Accounts.GetOrCreate(ctx, from, "operation", seenAt)
		if err != nil {
			return fmt.Errorf("resolve account %s: %w", from, err)
		}
		if created {
			observability.RecordEntityCreated("account")
		}
		op.FromAccountID = &account.ID
	}
	if to != "" {
		account, created, err := tx.Accounts.GetOrCreate(ctx, to, "operation", seenAt)
		if err != nil {
			return fmt.Errorf("resolve account %s: %w", to, err)
		}
		if created {
			observability.RecordEntityCreated("account")
		}
		op.ToAccountID = &account.ID
	}
	return nil
}
