package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ComputeDedupKey computes the deterministic suppression key for a rule
// finding using SHA256.
// Formula: SHA256(rule|account_id|asset_id|discriminant), truncated to the
// first 16 hex characters. Nil references hash as empty fields so the same
// finding always maps to the same key.
func ComputeDedupKey(rule string, accountID, assetID *int64, discriminant string) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		rule,
		formatID(accountID),
		formatID(assetID),
		discriminant,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
