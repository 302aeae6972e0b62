package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// memoryStore is a deterministic in-process store used for tests and for
// running without an external vector database.
type memoryStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

func init() {
	Register("memory", func(args interface{}) (Store, error) {
		return NewMemory(), nil
	})
}

func NewMemory() Store {
	return &memoryStore{points: make(map[string]Point)}
}

func (s *memoryStore) Init(ctx context.Context, dim int) error {
	_ = ctx
	_ = dim
	s.mu.Lock()
	s.points = make(map[string]Point)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Upsert(ctx context.Context, points []Point) error {
	_ = ctx
	s.mu.Lock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Search(ctx context.Context, vector []float32, docIDs []string, limit int, scoreThreshold float64) ([]Result, error) {
	_ = ctx
	allowed := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = struct{}{}
	}
	s.mu.RLock()
	var results []Result
	for _, p := range s.points {
		if _, ok := allowed[p.Payload.DocID]; !ok {
			continue
		}
		score := cosineSimilarity(vector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, Result{ID: p.ID, Score: score, Payload: p.Payload})
	}
	s.mu.RUnlock()
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
