package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/idhash"
)

// RapidOutflowRule fires when a watched account sends an unusual burst of
// payment-class operations: at least TxCount outgoing transfers within the
// trailing window. Evidence carries a per-asset breakdown and the outflow
// rate. Deduplication keys on the window start, so a sustained burst fires
// once per window rather than once per cycle.
type RapidOutflowRule struct {
	cfg RapidOutflowConfig
}

// NewRapidOutflowRule creates a RapidOutflowRule.
func NewRapidOutflowRule(cfg RapidOutflowConfig) *RapidOutflowRule {
	return &RapidOutflowRule{cfg: cfg}
}

// Name returns the rule identifier.
func (r *RapidOutflowRule) Name() string { return RuleRapidOutflow }

// Evaluate counts recent outgoing transfers per watched account.
func (r *RapidOutflowRule) Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error) {
	windowStart := in.Now.Add(-r.cfg.Window)

	var findings []domain.Finding
	for _, acct := range in.Watched {
		transfers, err := in.Stores.Operations.ListOutgoingTransfers(ctx, acct.ID, windowStart, true)
		if err != nil {
			return nil, fmt.Errorf("list outgoing transfers for %s: %w", acct.Address, err)
		}
		if len(transfers) < r.cfg.TxCount {
			continue
		}

		total := decimal.Zero
		counterparties := make(map[int64]struct{})
		byAsset := make(map[string]int)
		for _, t := range transfers {
			if t.Amount != nil {
				total = total.Add(*t.Amount)
			}
			if t.ToAccountID != nil {
				counterparties[*t.ToAccountID] = struct{}{}
			}
			assetKey := "native"
			if t.AssetID != nil {
				assetKey = fmt.Sprintf("asset_%d", *t.AssetID)
			}
			byAsset[assetKey]++
		}

		accountID := acct.ID
		opsPerMinute := float64(len(transfers)) / r.cfg.Window.Minutes()
		findings = append(findings, domain.Finding{
			RuleName:  r.Name(),
			Kind:      domain.FindingAlert,
			Severity:  r.cfg.Severity,
			AccountID: &accountID,
			Evidence: map[string]any{
				"operation_count":       len(transfers),
				"count_threshold":       r.cfg.TxCount,
				"window_minutes":        int(r.cfg.Window.Minutes()),
				"window_start":          windowStart.UTC().Format(time.RFC3339),
				"total_amount":          total.String(),
				"unique_counterparties": len(counterparties),
				"operations_per_asset":  byAsset,
				"operations_per_minute": opsPerMinute,
			},
			Message: fmt.Sprintf("Account %s sent %d transfers in %d minutes",
				acct.Address, len(transfers), int(r.cfg.Window.Minutes())),
			DedupKey: idhash.ComputeDedupKey(r.Name(), &accountID, nil,
				windowStart.UTC().Format(time.RFC3339)),
			FiredAt: in.Now,
		})
	}
	return findings, nil
}

var _ Rule = (*RapidOutflowRule)(nil)
