package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

func insertTx(t *testing.T, stores *storage.Stores, hash string, successful bool) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		TxHash:          hash,
		Ledger:          100,
		CreatedAt:       time.Now().UTC(),
		SourceAccountID: 1,
		OperationCount:  1,
		Successful:      successful,
	}
	created, err := stores.Transactions.Insert(context.Background(), tx)
	if err != nil {
		t.Fatalf("Insert tx failed: %v", err)
	}
	if !created {
		t.Fatalf("Expected tx %s to be created", hash)
	}
	return tx
}

func TestTransactionStore_InsertIsWriteOnce(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()

	first := insertTx(t, stores, "hash1", true)

	dup := &domain.Transaction{TxHash: "hash1", Ledger: 999, CreatedAt: time.Now().UTC(), SourceAccountID: 2}
	created, err := stores.Transactions.Insert(ctx, dup)
	if err != nil {
		t.Fatalf("Duplicate insert failed: %v", err)
	}
	if created {
		t.Error("Expected created=false for duplicate hash")
	}
	if dup.ID != first.ID {
		t.Errorf("Duplicate insert did not resolve existing id: got %d, want %d", dup.ID, first.ID)
	}

	got, err := stores.Transactions.GetByHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got.Ledger != 100 {
		t.Errorf("First write lost: ledger %d", got.Ledger)
	}
}

func TestOperationStore_InsertIsWriteOnce(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	tx := insertTx(t, stores, "hash1", true)

	op := &domain.Operation{OpID: "op1", TxID: tx.ID, Type: domain.OpTypePayment, CreatedAt: time.Now().UTC()}
	created, err := stores.Operations.Insert(ctx, op)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !created {
		t.Error("Expected created=true on first insert")
	}

	created, err = stores.Operations.Insert(ctx, &domain.Operation{OpID: "op1", TxID: tx.ID, Type: domain.OpTypePayment, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("Duplicate insert failed: %v", err)
	}
	if created {
		t.Error("Expected created=false for duplicate op_id")
	}
}

func TestOperationStore_ListOutgoingTransfers(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	from := int64(1)
	to := int64(2)
	amount := decimal.NewFromInt(100)

	okTx := insertTx(t, stores, "hash_ok", true)
	failedTx := insertTx(t, stores, "hash_failed", false)

	mustInsertOp := func(opID string, txID int64, opType string, createdAt time.Time) {
		t.Helper()
		_, err := stores.Operations.Insert(ctx, &domain.Operation{
			OpID: opID, TxID: txID, Type: opType,
			FromAccountID: &from, ToAccountID: &to, Amount: &amount,
			CreatedAt: createdAt,
		})
		if err != nil {
			t.Fatalf("Insert op %s failed: %v", opID, err)
		}
	}

	mustInsertOp("op_recent", okTx.ID, domain.OpTypePayment, now.Add(-10*time.Minute))
	mustInsertOp("op_old", okTx.ID, domain.OpTypePayment, now.Add(-2*time.Hour))
	mustInsertOp("op_failed_tx", failedTx.ID, domain.OpTypePayment, now.Add(-5*time.Minute))
	mustInsertOp("op_non_payment", okTx.ID, "change_trust", now.Add(-5*time.Minute))

	transfers, err := stores.Operations.ListOutgoingTransfers(ctx, from, now.Add(-time.Hour), true)
	if err != nil {
		t.Fatalf("ListOutgoingTransfers failed: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("Expected 1 transfer, got %d", len(transfers))
	}
	if transfers[0].OpID != "op_recent" {
		t.Errorf("Wrong transfer returned: %s", transfers[0].OpID)
	}
	if transfers[0].TxHash != "hash_ok" {
		t.Errorf("Transaction context missing: %s", transfers[0].TxHash)
	}

	// Without the payment-class restriction the change_trust op appears too.
	transfers, err = stores.Operations.ListOutgoingTransfers(ctx, from, now.Add(-time.Hour), false)
	if err != nil {
		t.Fatalf("ListOutgoingTransfers failed: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(transfers))
	}
	if !transfers[0].CreatedAt.Before(transfers[1].CreatedAt) {
		t.Error("Transfers not ordered by created_at ascending")
	}
}

func TestOperationStore_LatestActivityBefore(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	acct := int64(5)
	other := int64(6)

	tx := insertTx(t, stores, "hash1", true)
	older := now.Add(-40 * 24 * time.Hour)
	newer := now.Add(-35 * 24 * time.Hour)

	for _, op := range []*domain.Operation{
		{OpID: "op_out", TxID: tx.ID, Type: domain.OpTypePayment, FromAccountID: &acct, ToAccountID: &other, CreatedAt: older},
		{OpID: "op_in", TxID: tx.ID, Type: domain.OpTypePayment, FromAccountID: &other, ToAccountID: &acct, CreatedAt: newer},
		{OpID: "op_now", TxID: tx.ID, Type: domain.OpTypePayment, FromAccountID: &acct, ToAccountID: &other, CreatedAt: now},
	} {
		if _, err := stores.Operations.Insert(ctx, op); err != nil {
			t.Fatalf("Insert op failed: %v", err)
		}
	}

	// The op at exactly `now` is excluded: strictly before.
	latest, err := stores.Operations.LatestActivityBefore(ctx, acct, now)
	if err != nil {
		t.Fatalf("LatestActivityBefore failed: %v", err)
	}
	if !latest.Equal(newer) {
		t.Errorf("Latest activity mismatch: got %v, want %v", latest, newer)
	}

	_, err = stores.Operations.LatestActivityBefore(ctx, acct, older)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound before first activity, got %v", err)
	}
}
