// Package fileid derives deterministic document IDs from corpus file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc:"

// DocID returns a stable document ID for the given corpus-relative path.
// The same path always yields the same ID, so rebuilding an unchanged
// corpus produces an identical document set.
func DocID(relativePath string) string {
	normalized := filepath.ToSlash(filepath.Clean(relativePath))
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:12])
}
