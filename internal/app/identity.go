package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const userIDLength = 16

// UserID derives the pseudonymous identifier for a self-reported display
// name. Unsalted: a name maps to the same ID on every installation.
func UserID(name string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(name)))
	return hex.EncodeToString(sum[:])[:userIDLength]
}
