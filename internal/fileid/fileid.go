// Package fileid derives the identity of a selected file from its path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const prefix = "item:"

// Normalize returns the cleaned absolute form of path. Two selections of the same
// file through different relative paths normalize to the same string.
func Normalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// ItemID returns a stable item ID for the given absolute path.
// Same path always yields the same ID.
func ItemID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:8])
}
