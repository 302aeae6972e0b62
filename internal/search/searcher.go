package search

import (
	"context"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/model"
	"github.com/xxxsen/docqa/internal/query"
	"github.com/xxxsen/docqa/internal/vectorstore"
)

const (
	// When the primary variant comes back empty the threshold is relaxed
	// once by relaxDelta, floored at relaxFloor. Auxiliary variants are
	// not relaxed.
	relaxDelta = 0.05
	relaxFloor = 0.1
)

// VectorSearcher runs one nearest-neighbor query per weighted variant
// and aggregates candidate scores as sum(score * weight) per chunk.
type VectorSearcher struct {
	embed     *embed.Client
	store     vectorstore.Store
	threshold float64
}

func NewVectorSearcher(embedClient *embed.Client, store vectorstore.Store, threshold float64) *VectorSearcher {
	return &VectorSearcher{embed: embedClient, store: store, threshold: threshold}
}

// SearchMulti returns aggregated candidates sorted by weighted score. A
// vector-store failure for any variant aborts the whole search and
// yields an empty result; an embedding failure propagates.
func (s *VectorSearcher) SearchMulti(ctx context.Context, variants []query.Variant, docIDs []string, limit int) ([]model.Candidate, error) {
	logger := logutil.GetLogger(ctx)
	aggregated := make(map[string]*model.Candidate)
	order := make([]string, 0)

	for _, variant := range variants {
		vector, err := s.embed.EmbedOne(ctx, variant.Text)
		if err != nil {
			return nil, err
		}
		results, err := s.store.Search(ctx, vector, docIDs, limit, s.threshold)
		if err != nil {
			logger.Warn("vector search failed, dropping all candidates", zap.Error(err))
			return nil, nil
		}
		if len(results) == 0 && variant.Weight == 1.0 {
			relaxed := s.threshold - relaxDelta
			if relaxed < relaxFloor {
				relaxed = relaxFloor
			}
			results, err = s.store.Search(ctx, vector, docIDs, limit, relaxed)
			if err != nil {
				logger.Warn("relaxed vector search failed, dropping all candidates", zap.Error(err))
				return nil, nil
			}
		}
		for _, r := range results {
			if cand, ok := aggregated[r.ID]; ok {
				cand.Score += r.Score * variant.Weight
				cand.VectorScore = cand.Score
				continue
			}
			aggregated[r.ID] = &model.Candidate{
				ID:          r.ID,
				Score:       r.Score * variant.Weight,
				VectorScore: r.Score * variant.Weight,
				Payload:     r.Payload,
			}
			order = append(order, r.ID)
		}
	}

	candidates := make([]model.Candidate, 0, len(aggregated))
	for _, id := range order {
		candidates = append(candidates, *aggregated[id])
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].ID < candidates[b].ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
