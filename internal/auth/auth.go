// Package auth hashes upload tokens before they are persisted. Only the
// digest is stored in session metadata; the plaintext token is returned to
// the caller once and never written down.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 digest of tok.
func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
