package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/idhash"
	"stellar-sentinel/internal/storage"
)

// DormantReactivationRule fires when a long-silent account moves funds
// again: the account's latest activity before the trailing hour is older
// than the dormancy threshold, and an outgoing transfer at or above the
// amount threshold happened within that hour. Fires at most once per
// account per cycle and materializes as a flag, raising the account's
// risk score.
//
// Dormancy is measured against the operation history rather than the
// account's last_seen, which the reactivating transfer itself already
// bumped by the time the rule runs.
type DormantReactivationRule struct {
	cfg DormantReactivationConfig
}

// NewDormantReactivationRule creates a DormantReactivationRule.
func NewDormantReactivationRule(cfg DormantReactivationConfig) *DormantReactivationRule {
	return &DormantReactivationRule{cfg: cfg}
}

// Name returns the rule identifier.
func (r *DormantReactivationRule) Name() string { return RuleDormantReactivation }

// Evaluate checks each watched account for a dormancy break.
func (r *DormantReactivationRule) Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error) {
	windowStart := in.Now.Add(-time.Hour)
	dormancy := time.Duration(r.cfg.DormantDays) * 24 * time.Hour

	var findings []domain.Finding
	for _, acct := range in.Watched {
		lastActivity, err := in.Stores.Operations.LatestActivityBefore(ctx, acct.ID, windowStart)
		if errors.Is(err, storage.ErrNotFound) {
			// No history before the window: a brand-new account, not a
			// dormant one.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest activity for %s: %w", acct.Address, err)
		}
		if in.Now.Sub(lastActivity) < dormancy {
			continue
		}

		transfers, err := in.Stores.Operations.ListOutgoingTransfers(ctx, acct.ID, windowStart, true)
		if err != nil {
			return nil, fmt.Errorf("list outgoing transfers for %s: %w", acct.Address, err)
		}

		for _, t := range transfers {
			if t.Amount == nil || t.Amount.LessThan(r.cfg.AmountThreshold) {
				continue
			}

			accountID := acct.ID
			silentDays := int(in.Now.Sub(lastActivity).Hours() / 24)
			findings = append(findings, domain.Finding{
				RuleName:  r.Name(),
				Kind:      domain.FindingFlag,
				Severity:  r.cfg.Severity,
				AccountID: &accountID,
				AssetID:   t.AssetID,
				Evidence: map[string]any{
					"last_activity":       lastActivity.UTC().Format(time.RFC3339),
					"silent_days":         silentDays,
					"dormant_days":        r.cfg.DormantDays,
					"reactivation_amount": t.Amount.String(),
					"amount_threshold":    r.cfg.AmountThreshold.String(),
					"transaction_hash":    t.TxHash,
				},
				Message: fmt.Sprintf("Account %s reactivated after %d days of silence with a transfer of %s",
					acct.Address, silentDays, t.Amount.String()),
				DedupKey: idhash.ComputeDedupKey(r.Name(), &accountID, t.AssetID, ""),
				FiredAt:  in.Now,
			})
			break
		}
	}
	return findings, nil
}

var _ Rule = (*DormantReactivationRule)(nil)
