package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint derives a deterministic cache key from an ordered sequence
// of request parameters (period start, period end, operation tag,
// account id, ...). Parts are length-prefixed before hashing so that
// ("ab","c") and ("a","bc") never collide, and order is significant: the
// same logical inputs always hash identically regardless of call site.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
