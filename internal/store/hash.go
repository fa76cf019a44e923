package store

import "crypto/sha256"

// ContentHash fingerprints a payload for dedup probes and for comparing
// the live selection to a historical entry. SHA-256 gives a
// 256-bit, collision-resistant identity cheap enough to compute on
// every capture without holding more than one payload in memory.
func ContentHash(payload []byte) []byte {
	sum := sha256.Sum256(payload)

	return sum[:]
}
