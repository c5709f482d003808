// Package idhash computes deterministic identifiers for stored records.
// Hashing the natural key keeps IDs stable across re-ingestion, which is
// what makes the append-only stores' duplicate detection meaningful.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenID computes a deterministic token_id.
// Formula: SHA256(chain|address). Returns hex-encoded hash (64 characters).
func TokenID(chain, address string) string {
	data := fmt.Sprintf("%s|%s", chain, address)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// TradeID computes a deterministic trade_id.
// Formula: SHA256(chain|tx_signature|wallet), matching the trade store's
// uniqueness contract.
func TradeID(chain, txSignature, wallet string) string {
	data := fmt.Sprintf("%s|%s|%s", chain, txSignature, wallet)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
