// Package checksum computes content digests used to detect concurrent
// modification of vault documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data still hashes to want.
func Matches(data []byte, want string) bool {
	return Sum(data) == want
}
