package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/model"
)

type qdrantConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Collection string `json:"collection"`
	TimeoutSec int    `json:"timeout_sec"`
}

// qdrantStore is a minimal REST client to Qdrant using cosine distance.
// The collection is dropped and recreated on Init so each process run
// starts from a clean collection.
type qdrantStore struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func init() {
	Register("qdrant", createQdrantStore)
}

func createQdrantStore(args interface{}) (Store, error) {
	cfg := &qdrantConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "universal_rag_clean"
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &qdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

func (s *qdrantStore) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dim)
	}
	// A stale collection from a previous run may have a different
	// dimensionality; drop it first and ignore not-found.
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil {
		logutil.GetLogger(ctx).Warn("delete qdrant collection failed", zap.String("collection", s.collection), zap.Error(err))
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return fmt.Errorf("create qdrant collection: %w", err)
	}
	return nil
}

func (s *qdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		items = append(items, map[string]interface{}{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}
	body := map[string]interface{}{"points": items}
	endpoint := s.collectionURL() + "/points?wait=true"
	if err := s.do(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      string             `json:"id"`
		Score   float64            `json:"score"`
		Payload model.ChunkPayload `json:"payload"`
	} `json:"result"`
}

func (s *qdrantStore) Search(ctx context.Context, vector []float32, docIDs []string, limit int, scoreThreshold float64) ([]Result, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": scoreThreshold,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "doc_id",
					"match": map[string]interface{}{"any": docIDs},
				},
			},
		},
	}
	var out qdrantSearchResponse
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", body, &out); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	results := make([]Result, 0, len(out.Result))
	for _, r := range out.Result {
		results = append(results, Result{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return results, nil
}

func (s *qdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *qdrantStore) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant request failed: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
