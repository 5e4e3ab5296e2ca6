// Package sourceid provides deterministic chunk IDs derived from a project,
// source path, and chunk ordinal. Re-ingesting the same file yields the same
// IDs, so upserts replace prior rows instead of accumulating duplicates.
package sourceid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const prefix = "chunk:"

// ChunkID returns a stable ID for the ordinal-th chunk of the given source
// within a project. The same (project, path, ordinal) always yields the same
// ID. Paths are cleaned so trailing slashes and "." segments do not matter.
func ChunkID(projectID int64, sourcePath string, ordinal int) string {
	normalized := filepath.Clean(sourcePath)
	key := fmt.Sprintf("%d\x00%s\x00%d", projectID, normalized, ordinal)
	hash := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(hash[:])
}
