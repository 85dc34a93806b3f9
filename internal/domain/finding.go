package domain

import "time"

// FindingKind selects the durable form a finding materializes into.
type FindingKind string

const (
	FindingAlert FindingKind = "alert"
	FindingFlag  FindingKind = "flag"
)

// Finding is the ephemeral output of one rule evaluation. Findings only
// become durable once the engine persists them as an Alert or Flag.
// DedupKey is the deterministic suppression key computed by the rule from
// its discriminating evidence; two findings with the same key describe the
// same underlying event.
type Finding struct {
	RuleName  string
	Kind      FindingKind
	Severity  Severity
	AccountID *int64
	AssetID   *int64
	Evidence  map[string]any
	Message   string
	DedupKey  string
	FiredAt   time.Time
}
