package domain

// Asset represents a non-native Stellar asset identified by (code, issuer).
// The native asset (XLM) is never materialized as a row; stores and
// aggregates use a nil asset reference for it.
// Corresponds to assets table in PostgreSQL.
type Asset struct {
	ID       int64
	Code     string // up to 12 chars
	Issuer   string // 56-char strkey
	Type     string // credit_alphanum4 | credit_alphanum12
	Metadata map[string]any
}

// Asset type constants as reported by Horizon.
const (
	AssetTypeNative     = "native"
	AssetTypeAlphanum4  = "credit_alphanum4"
	AssetTypeAlphanum12 = "credit_alphanum12"
)
