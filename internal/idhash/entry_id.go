package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEntryID computes a deterministic journal entry_id using SHA256.
// Formula: SHA256(kind|owner|mint|amount|started_at)
// Returns hex-encoded hash (64 characters).
func ComputeEntryID(
	kind string,
	owner string,
	mint string,
	amount string,
	startedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		kind,
		owner,
		mint,
		amount,
		startedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
