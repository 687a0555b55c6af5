package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix namespaces all index keys in the store.
const KeyPrefix = "tunedex:"

// ISRCLength is the fixed length of an International Standard Recording Code.
const ISRCLength = 12

// ISRC is a normalized (upper-case) 12-character alphanumeric track identifier.
type ISRC string

// ParseISRC validates and normalizes a raw ISRC string.
// Comparison and storage are always upper-case.
func ParseISRC(raw string) (ISRC, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != ISRCLength {
		return "", fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidISRC, raw, len(s), ISRCLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", fmt.Errorf("%w: %q contains non-alphanumeric byte at %d", ErrInvalidISRC, raw, i)
		}
	}
	return ISRC(s), nil
}

// String returns the normalized identifier.
func (i ISRC) String() string { return string(i) }

// DocumentID derives the deterministic index document id for this ISRC.
// Stable across runs: re-ingestion of the same ISRC overwrites rather than
// duplicates.
func (i ISRC) DocumentID() string {
	sum := sha256.Sum256([]byte(i))
	return hex.EncodeToString(sum[:16])
}
