package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PayloadHash returns the hex SHA-256 of the raw body. It is always
// computed, both as the dedupe fallback and for the audit trail.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ResolveDedupeKey derives the stable idempotency key for one logical
// event: "<provider>:<eventID>" when the provider assigned an id,
// "<provider>:sha256:<payloadHash>" otherwise. The hash fallback cannot
// distinguish two distinct logical events that happen to serialize to
// identical bytes and arrive without an id; they collapse into one row.
func ResolveDedupeKey(provider, eventID, payloadHash string) string {
	if id := strings.TrimSpace(eventID); id != "" {
		return provider + ":" + id
	}
	return provider + ":sha256:" + payloadHash
}
