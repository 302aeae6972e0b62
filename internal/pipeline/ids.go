package pipeline

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// DocID derives a stable document identifier from its source URL, so
// re-ingesting the same URL overwrites instead of duplicating.
func DocID(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives a deterministic UUID for a chunk from its document
// and global chunk index, stable across restarts and re-ingestions.
func ChunkID(docID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID+"|"+strconv.Itoa(index))).String()
}
