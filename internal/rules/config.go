package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"stellar-sentinel/internal/domain"
)

// Rule names. Also used as alert_type / flag_type on persisted records.
const (
	RuleLargeTransfer       = "large_transfer"
	RuleNewCounterparty     = "new_counterparty"
	RuleDormantReactivation = "dormant_reactivation"
	RuleRapidOutflow        = "rapid_outflow"
	RuleAssetConcentration  = "asset_concentration"
)

// Config holds the rule engine configuration: global switches plus one
// section per rule.
type Config struct {
	Enabled     bool
	DryRun      bool
	Interval    time.Duration
	DedupWindow time.Duration

	LargeTransfer       LargeTransferConfig
	NewCounterparty     NewCounterpartyConfig
	DormantReactivation DormantReactivationConfig
	RapidOutflow        RapidOutflowConfig
	AssetConcentration  AssetConcentrationConfig
}

// LargeTransferConfig tunes the single-transfer amount rule.
type LargeTransferConfig struct {
	Enabled   bool
	Threshold decimal.Decimal
	Severity  domain.Severity
}

// NewCounterpartyConfig tunes the first-interaction rule.
type NewCounterpartyConfig struct {
	Enabled   bool
	Threshold decimal.Decimal
	Severity  domain.Severity
}

// DormantReactivationConfig tunes the dormancy rule. DormantDays is the
// minimum silence before an account counts as dormant; AmountThreshold is
// the minimum outgoing amount that counts as a reactivation.
type DormantReactivationConfig struct {
	Enabled         bool
	DormantDays     int
	AmountThreshold decimal.Decimal
	Severity        domain.Severity
}

// RapidOutflowConfig tunes the burst-of-outgoing-transfers rule.
type RapidOutflowConfig struct {
	Enabled  bool
	TxCount  int
	Window   time.Duration
	Severity domain.Severity
}

// AssetConcentrationConfig tunes the holder-concentration rule.
type AssetConcentrationConfig struct {
	Enabled  bool
	Percent  decimal.Decimal
	Severity domain.Severity
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		DryRun:      false,
		Interval:    5 * time.Minute,
		DedupWindow: 24 * time.Hour,

		LargeTransfer: LargeTransferConfig{
			Enabled:   true,
			Threshold: decimal.NewFromInt(10000),
			Severity:  domain.SeverityMedium,
		},
		NewCounterparty: NewCounterpartyConfig{
			Enabled:   true,
			Threshold: decimal.NewFromInt(5000),
			Severity:  domain.SeverityMedium,
		},
		DormantReactivation: DormantReactivationConfig{
			Enabled:         true,
			DormantDays:     30,
			AmountThreshold: decimal.NewFromInt(1000),
			Severity:        domain.SeverityHigh,
		},
		RapidOutflow: RapidOutflowConfig{
			Enabled:  true,
			TxCount:  10,
			Window:   60 * time.Minute,
			Severity: domain.SeverityHigh,
		},
		AssetConcentration: AssetConcentrationConfig{
			Enabled:  true,
			Percent:  decimal.NewFromInt(80),
			Severity: domain.SeverityLow,
		},
	}
}
