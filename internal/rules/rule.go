package rules

import (
	"context"
	"time"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
)

// Rule evaluates one detection heuristic against current store state.
type Rule interface {
	// Evaluate inspects the store state and returns zero or more findings.
	// Rules never mutate state; persistence is the engine's job.
	Evaluate(ctx context.Context, in *EvalInput) ([]domain.Finding, error)

	// Name returns the rule identifier, also used as the persisted
	// alert_type / flag_type.
	Name() string
}

// EvalInput holds everything a rule evaluation may read.
type EvalInput struct {
	Stores  *storage.Stores
	Watched []*domain.Account
	Now     time.Time
}

// FromConfig builds the enabled rule set in a fixed evaluation order.
func FromConfig(cfg Config) []Rule {
	var rs []Rule
	if cfg.LargeTransfer.Enabled {
		rs = append(rs, NewLargeTransferRule(cfg.LargeTransfer))
	}
	if cfg.NewCounterparty.Enabled {
		rs = append(rs, NewNewCounterpartyRule(cfg.NewCounterparty))
	}
	if cfg.DormantReactivation.Enabled {
		rs = append(rs, NewDormantReactivationRule(cfg.DormantReactivation))
	}
	if cfg.RapidOutflow.Enabled {
		rs = append(rs, NewRapidOutflowRule(cfg.RapidOutflow))
	}
	if cfg.AssetConcentration.Enabled {
		rs = append(rs, NewAssetConcentrationRule(cfg.AssetConcentration))
	}
	return rs
}
