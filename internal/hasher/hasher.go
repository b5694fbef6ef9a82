// Package hasher computes content checksums for change and duplicate
// detection. The catalog stores SHA-256 of the full file content,
// rendered as lowercase hex.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"photokeep/internal/filesystem"
)

// Hasher computes the content checksum of a file on disk.
type Hasher interface {
	Sum(path string) (string, error)
}

// SHA256 is the default Hasher. It streams the file through
// crypto/sha256 rather than reading it into memory.
type SHA256 struct{}

// NewSHA256 returns the default SHA-256 hasher.
func NewSHA256() *SHA256 {
	return &SHA256{}
}

// Sum returns the lowercase hex SHA-256 of the file's full content.
// Opens retry stale NFS handles so a server-side refresh mid-scan does
// not fail the file.
func (h *SHA256) Sum(path string) (string, error) {
	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(sum.Sum(nil)), nil
}
