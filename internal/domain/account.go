package domain

import "time"

// Account represents a Stellar account with risk tracking.
// Corresponds to accounts table in PostgreSQL.
type Account struct {
	ID        int64
	Address   string // 56-char strkey, unique natural key
	FirstSeen time.Time
	LastSeen  time.Time
	Label     *string
	RiskScore float64 // monotonic accumulator, clamped to [0, 100]
	Metadata  map[string]any
}

// MaxRiskScore is the upper clamp for account risk scores.
const MaxRiskScore = 100.0
