package throttle

import (
	"encoding/hex"
	"strings"

	sha256 "github.com/minio/sha256-simd"
)

// duplicate detection only applies to text at least this long after
// normalization; short texts ("ok", "thanks!") repeat legitimately
const minDupeLength = 20

// Normalize collapses runs of whitespace to single spaces, trims, and
// lower-cases, so trivially-reformatted resubmissions bucket together.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Fingerprint returns a 16-hex-char hash of normalized text.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}
