package search

import (
	"sort"

	"github.com/xxxsen/docqa/internal/model"
)

// rrfK dampens the rank contribution so that agreement between the two
// lists outweighs a single top position in either one.
const rrfK = 60

// FuseRRF merges a vector result list and a lexical result list with
// reciprocal rank fusion. Each list contributes 1/(k + rank + 1) per
// candidate, ranks counted from zero, so the fused score depends only
// on positions, never on the incomparable raw scores.
func FuseRRF(vectorResults []model.Candidate, lexicalResults []model.Candidate, limit int) []model.Candidate {
	fused := make(map[string]*model.Candidate)
	order := make([]string, 0, len(vectorResults)+len(lexicalResults))

	add := func(c model.Candidate, rank int) {
		contribution := 1.0 / float64(rrfK+rank+1)
		if existing, ok := fused[c.ID]; ok {
			existing.Score += contribution
			if c.VectorScore != 0 {
				existing.VectorScore = c.VectorScore
			}
			if c.BM25Score != 0 {
				existing.BM25Score = c.BM25Score
			}
			return
		}
		entry := c
		entry.Score = contribution
		fused[c.ID] = &entry
		order = append(order, c.ID)
	}
	for rank, c := range vectorResults {
		add(c, rank)
	}
	for rank, c := range lexicalResults {
		add(c, rank)
	}

	out := make([]model.Candidate, 0, len(fused))
	for _, id := range order {
		out = append(out, *fused[id])
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ID < out[b].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
