package rules

import (
	"context"
	"fmt"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/idhash"
)

// LargeTransferRule fires on any payment-class operation sent by a watched
// account with an amount at or above the configured threshold within the
// last hour. One finding per qualifying operation; deduplication keys on
// the parent transaction hash.
type LargeTransferRule struct {
	cfg LargeTransferConfig
}

// NewLargeTransferRule creates a LargeTransferRule.
func NewLargeTransferRule(cfg LargeTransferConfig) *LargeTransferRule {
	return &LargeTransferRule{cfg: cfg}
}

// Name returns the rule identifier.
func (r *LargeTransferRule) Name() string { return RuleLargeTransfer }

// Evaluate scans the trailing hour of outgoing transfers per watched account.
func (r *LargeTransferRule) Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error) {
	since := in.Now.Add(-time.Hour)

	var findings []domain.Finding
	for _, acct := range in.Watched {
		transfers, err := in.Stores.Operations.ListOutgoingTransfers(ctx, acct.ID, since, true)
		if err != nil {
			return nil, fmt.Errorf("list outgoing transfers for %s: %w", acct.Address, err)
		}

		for _, t := range transfers {
			if t.Amount == nil || t.Amount.LessThan(r.cfg.Threshold) {
				continue
			}

			accountID := acct.ID
			findings = append(findings, domain.Finding{
				RuleName:  r.Name(),
				Kind:      domain.FindingAlert,
				Severity:  r.cfg.Severity,
				AccountID: &accountID,
				AssetID:   t.AssetID,
				Evidence: map[string]any{
					"transaction_hash": t.TxHash,
					"operation_id":     t.OpID,
					"operation_type":   t.Type,
					"amount":           t.Amount.String(),
					"threshold":        r.cfg.Threshold.String(),
					"to_account_id":    t.ToAccountID,
				},
				Message: fmt.Sprintf("Outgoing transfer of %s from %s exceeds threshold %s",
					t.Amount.String(), acct.Address, r.cfg.Threshold.String()),
				DedupKey: idhash.ComputeDedupKey(r.Name(), &accountID, t.AssetID, t.TxHash),
				FiredAt:  in.Now,
			})
		}
	}
	return findings, nil
}

var _ Rule = (*LargeTransferRule)(nil)
