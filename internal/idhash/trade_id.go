// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(ticker|session_date|phase|policy_id)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(ticker, sessionDate, phase, policyID string) string {
	data := fmt.Sprintf("%s|%s|%s|%s", ticker, sessionDate, phase, policyID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
