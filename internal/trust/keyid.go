package trust

import (
	"fmt"
	"strings"
)

// minKeyIDLen is the length of a short (32-bit) OpenPGP key id in hex digits
const minKeyIDLen = 8

// NormalizeKeyID lowercases a hex key id and strips an optional 0x prefix.
// It returns "" for strings that are not hex.
func NormalizeKeyID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.TrimPrefix(id, "0x")
	if id == "" {
		return ""
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ""
		}
	}
	return id
}

// FormatKeyID renders a 64-bit OpenPGP key id
func FormatKeyID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}

// KeyIDsMatch reports whether two normalized key ids name the same key. Short
// ids match the tail of long ids and fingerprints.
func KeyIDsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) < minKeyIDLen {
		return a == b
	}
	return strings.HasSuffix(b, a)
}
