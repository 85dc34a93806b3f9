package rules

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/idhash"
)

// topHolderCount is how many leading holders the concentration is measured
// over.
const topHolderCount = 10

// AssetConcentrationRule fires once per asset whose top holders control at
// least the configured share of the current supply. "Current" is the latest
// balance snapshot per (account, asset). This rule is store-wide: it ignores
// the watched set and evaluates every known asset with balance history.
// Deduplication keys on the rounded concentration percentage, so the alert
// repeats only when the distribution actually shifts.
type AssetConcentrationRule struct {
	cfg AssetConcentrationConfig
}

// NewAssetConcentrationRule creates an AssetConcentrationRule.
func NewAssetConcentrationRule(cfg AssetConcentrationConfig) *AssetConcentrationRule {
	return &AssetConcentrationRule{cfg: cfg}
}

// Name returns the rule identifier.
func (r *AssetConcentrationRule) Name() string { return RuleAssetConcentration }

// Evaluate measures holder concentration for every known asset.
func (r *AssetConcentrationRule) Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error) {
	assets, err := in.Stores.Assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	var findings []domain.Finding
	for _, asset := range assets {
		balances, err := in.Stores.Balances.LatestForAsset(ctx, asset.ID)
		if err != nil {
			return nil, fmt.Errorf("latest balances for asset %d: %w", asset.ID, err)
		}

		var holders []*domain.AccountBalance
		total := decimal.Zero
		for _, b := range balances {
			if b.Balance.LessThanOrEqual(decimal.Zero) {
				continue
			}
			holders = append(holders, b)
			total = total.Add(b.Balance)
		}
		if len(holders) == 0 || total.IsZero() {
			continue
		}

		top := holders
		if len(top) > topHolderCount {
			top = top[:topHolderCount]
		}
		topTotal := decimal.Zero
		for _, b := range top {
			topTotal = topTotal.Add(b.Balance)
		}

		concentration := topTotal.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		if concentration.LessThan(r.cfg.Percent) {
			continue
		}

		topHolders := make([]map[string]any, 0, len(top))
		for _, b := range top {
			holder, err := in.Stores.Accounts.GetByID(ctx, b.AccountID)
			if err != nil {
				return nil, fmt.Errorf("resolve holder %d: %w", b.AccountID, err)
			}
			topHolders = append(topHolders, map[string]any{
				"account":           holder.Address,
				"balance":           b.Balance.String(),
				"percent_of_supply": b.Balance.Div(total).Mul(decimal.NewFromInt(100)).Round(2).String(),
			})
		}

		assetID := asset.ID
		findings = append(findings, domain.Finding{
			RuleName: r.Name(),
			Kind:     domain.FindingAlert,
			Severity: r.cfg.Severity,
			AssetID:  &assetID,
			Evidence: map[string]any{
				"asset_code":            asset.Code,
				"asset_issuer":          asset.Issuer,
				"concentration_percent": concentration.String(),
				"percent_threshold":     r.cfg.Percent.String(),
				"total_supply":          total.String(),
				"holder_count":          len(holders),
				"top_holders":           topHolders,
			},
			Message: fmt.Sprintf("Top %d holders of %s control %s%% of supply",
				len(top), asset.Code, concentration.String()),
			DedupKey: idhash.ComputeDedupKey(r.Name(), nil, &assetID, concentration.String()),
			FiredAt:  in.Now,
		})
	}
	return findings, nil
}

var _ Rule = (*AssetConcentrationRule)(nil)
