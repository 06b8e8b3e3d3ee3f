package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// opaqueTokenBytes is 256 bits of entropy for refresh and invite tokens
const opaqueTokenBytes = 32

// NewOpaqueToken generates a 256-bit random secret encoded as hex. The raw
// value is handed to the caller exactly once and never persisted.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 of a raw opaque token — the only form
// ever stored server-side.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
