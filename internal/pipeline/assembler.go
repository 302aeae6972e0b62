package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

// dedupePrefixLen bounds the fingerprint to the chunk head so near
// duplicates produced by overlapping windows collapse to one entry.
const dedupePrefixLen = 200

// BuildContext joins the top maxChunks candidate texts into the prompt
// context, preserving ranking order and dropping duplicates. Dedupe runs
// inside the window only: a duplicate does not promote a lower-ranked
// candidate into the context.
func BuildContext(candidates []model.Candidate, maxChunks int) string {
	if len(candidates) > maxChunks {
		candidates = candidates[:maxChunks]
	}
	seen := make(map[string]struct{})
	parts := make([]string, 0, maxChunks)
	for _, c := range candidates {
		text := c.Payload.Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		prefix := text
		if len(prefix) > dedupePrefixLen {
			prefix = prefix[:dedupePrefixLen]
		}
		sum := md5.Sum([]byte(prefix))
		key := hex.EncodeToString(sum[:])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
