package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/docqa/internal/model"
)

// Point is one chunk vector plus its payload, addressed by a
// deterministic chunk identifier so upserts are idempotent.
type Point struct {
	ID      string
	Vector  []float32
	Payload model.ChunkPayload
}

// Result is a nearest-neighbor hit.
type Result struct {
	ID      string
	Score   float64
	Payload model.ChunkPayload
}

// Store is the narrow contract to the external vector database: given a
// vector, return nearest neighbors restricted to a document-id filter
// and a minimum similarity score.
type Store interface {
	Init(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, docIDs []string, limit int, scoreThreshold float64) ([]Result, error)
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vector store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}
