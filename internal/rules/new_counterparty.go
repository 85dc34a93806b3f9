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

// NewCounterpartyRule fires when a watched account interacts with an
// account it has never touched before and the first transfer is large:
// a counterparty edge with tx_count == 1 and total_amount at or above the
// threshold, last seen within the trailing hour. Both directions count.
// Deduplication keys on the counterparty address.
type NewCounterpartyRule struct {
	cfg NewCounterpartyConfig
}

// NewNewCounterpartyRule creates a NewCounterpartyRule.
func NewNewCounterpartyRule(cfg NewCounterpartyConfig) *NewCounterpartyRule {
	return &NewCounterpartyRule{cfg: cfg}
}

// Name returns the rule identifier.
func (r *NewCounterpartyRule) Name() string { return RuleNewCounterparty }

// Evaluate scans recent counterparty edges per watched account.
func (r *NewCounterpartyRule) Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error) {
	since := in.Now.Add(-time.Hour)

	var findings []domain.Finding
	for _, acct := range in.Watched {
		edges, err := in.Stores.Edges.ListTouchingAccount(ctx, acct.ID, since)
		if err != nil {
			return nil, fmt.Errorf("list edges for %s: %w", acct.Address, err)
		}

		for _, e := range edges {
			if e.TxCount != 1 || e.TotalAmount.LessThan(r.cfg.Threshold) {
				continue
			}

			counterpartyID := e.ToAccountID
			direction := "outgoing"
			if counterpartyID == acct.ID {
				counterpartyID = e.FromAccountID
				direction = "incoming"
			}

			counterparty, err := in.Stores.Accounts.GetByID(ctx, counterpartyID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve counterparty %d: %w", counterpartyID, err)
			}

			accountID := acct.ID
			findings = append(findings, domain.Finding{
				RuleName:  r.Name(),
				Kind:      domain.FindingAlert,
				Severity:  r.cfg.Severity,
				AccountID: &accountID,
				AssetID:   e.AssetID,
				Evidence: map[string]any{
					"counterparty_account": counterparty.Address,
					"direction":            direction,
					"total_amount":         e.TotalAmount.String(),
					"tx_count":             e.TxCount,
					"threshold":            r.cfg.Threshold.String(),
				},
				Message: fmt.Sprintf("First interaction between %s and %s moved %s",
					acct.Address, counterparty.Address, e.TotalAmount.String()),
				DedupKey: idhash.ComputeDedupKey(r.Name(), &accountID, e.AssetID, counterparty.Address),
				FiredAt:  in.Now,
			})
		}
	}
	return findings, nil
}

var _ Rule = (*NewCounterpartyRule)(nil)
