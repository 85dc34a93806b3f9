package memory

import (
	"context"
	"testing"
	"time"

	"stellar-sentinel/internal/domain"
)

func TestAlertStore_HasRecentMatchesDedupKey(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()
	acct := int64(1)

	err := stores.Alerts.Insert(ctx, &domain.Alert{
		AccountID: &acct,
		AlertType: "large_transfer",
		Severity:  domain.SeverityMedium,
		Payload:   map[string]any{"dedup_key": "abc123", "amount": "15000"},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := stores.Alerts.HasRecent(ctx, "large_transfer", &acct, "abc123", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("HasRecent failed: %v", err)
	}
	if !got {
		t.Error("Expected HasRecent=true for matching key in window")
	}

	// Different key, different account, or an expired window all miss.
	if got, _ := stores.Alerts.HasRecent(ctx, "large_transfer", &acct, "other", now.Add(-24*time.Hour)); got {
		t.Error("Matched wrong dedup key")
	}
	other := int64(2)
	if got, _ := stores.Alerts.HasRecent(ctx, "large_transfer", &other, "abc123", now.Add(-24*time.Hour)); got {
		t.Error("Matched wrong account")
	}
	if got, _ := stores.Alerts.HasRecent(ctx, "large_transfer", &acct, "abc123", now.Add(time.Minute)); got {
		t.Error("Matched outside the window")
	}
	if got, _ := stores.Alerts.HasRecent(ctx, "rapid_outflow", &acct, "abc123", now.Add(-24*time.Hour)); got {
		t.Error("Matched wrong alert type")
	}
}

func TestAlertStore_HasRecentNilAccount(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	err := stores.Alerts.Insert(ctx, &domain.Alert{
		AlertType: "asset_concentration",
		Severity:  domain.SeverityLow,
		Payload:   map[string]any{"dedup_key": "k1"},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := stores.Alerts.HasRecent(ctx, "asset_concentration", nil, "k1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("HasRecent failed: %v", err)
	}
	if !got {
		t.Error("Expected HasRecent=true for nil account")
	}

	acct := int64(1)
	if got, _ := stores.Alerts.HasRecent(ctx, "asset_concentration", &acct, "k1", now.Add(-time.Hour)); got {
		t.Error("Nil-account alert matched a concrete account")
	}
}

func TestFlagStore_HasRecent(t *testing.T) {
	db := NewDB()
	stores := db.Stores()
	ctx := context.Background()
	now := time.Now().UTC()

	err := stores.Flags.Insert(ctx, &domain.Flag{
		AccountID: 1,
		FlagType:  "dormant_reactivation",
		Severity:  domain.SeverityHigh,
		Reason:    "account active after 45 days dormant",
		Evidence:  map[string]any{"dedup_key": "f1"},
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := stores.Flags.HasRecent(ctx, "dormant_reactivation", 1, "f1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("HasRecent failed: %v", err)
	}
	if !got {
		t.Error("Expected HasRecent=true for matching flag")
	}
	if got, _ := stores.Flags.HasRecent(ctx, "dormant_reactivation", 2, "f1", now.Add(-24*time.Hour)); got {
		t.Error("Matched wrong account")
	}
}
