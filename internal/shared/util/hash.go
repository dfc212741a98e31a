package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey derives the storage namespace for an owner: 32 hex characters,
// stable across processes, never revealing the owner id itself.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte("owner:" + ownerID))
	return hex.EncodeToString(sum[:16])
}
