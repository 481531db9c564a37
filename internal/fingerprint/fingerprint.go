// Package fingerprint computes content fingerprints used as the catalog's dedup key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

// Compute streams r through SHA-256 and returns the lowercase hex digest.
func Compute(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("fingerprint: nil reader")
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Valid reports whether s looks like a fingerprint produced by this package.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
