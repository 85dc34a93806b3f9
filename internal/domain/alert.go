package domain

import "time"

// Severity grades a finding, alert, or flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskScoreDelta returns the risk-score increase applied when a flag of this
// severity is created.
func (s Severity) RiskScoreDelta() float64 {
	switch s {
	case SeverityLow:
		return 10
	case SeverityMedium:
		return 25
	case SeverityHigh:
		return 50
	case SeverityCritical:
		return 75
	}
	return 0
}

// Alert is the durable form of an alert-class finding. The payload carries
// rule evidence plus the dedup_key used for suppression.
// Corresponds to alerts table in PostgreSQL.
type Alert struct {
	ID             int64
	AccountID      *int64
	AssetID        *int64
	AlertType      string // rule name
	Severity       Severity
	Payload        map[string]any
	CreatedAt      time.Time
	AcknowledgedAt *time.Time
}

// Flag is the durable form of a flag-class finding; creating one also raises
// the target account's risk score.
// Corresponds to flags table in PostgreSQL.
type Flag struct {
	ID         int64
	AccountID  int64
	FlagType   string // rule name
	Severity   Severity
	Reason     string
	Evidence   map[string]any
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
