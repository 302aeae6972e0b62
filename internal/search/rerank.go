package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/model"
)

const (
	defaultCohereEndpoint = "https://api.cohere.com/v2/rerank"
	defaultRerankModel    = "rerank-english-v3.0"
	// The reranker never sees more than rerankPoolCap candidates; the
	// fused tail past the cap is discarded before the remote call.
	rerankPoolCap = 100
)

// RankedItem is one reranker verdict referencing a document by its
// position in the submitted list.
type RankedItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Reranker reorders documents by relevance to the query. Implementations
// return at most topN items.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RankedItem, error)
}

type cohereReranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewCohereReranker builds a reranker against the Cohere rerank API.
// Empty model or endpoint fall back to the service defaults.
func NewCohereReranker(apiKey string, mdl string, endpoint string, timeout time.Duration) Reranker {
	if mdl == "" {
		mdl = defaultRerankModel
	}
	if endpoint == "" {
		endpoint = defaultCohereEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &cohereReranker{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    mdl,
		client:   &http.Client{Timeout: timeout},
	}
}

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []RankedItem `json:"results"`
}

func (c *cohereReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]RankedItem, error) {
	body, err := json.Marshal(cohereRerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	rsp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rerank api: %w", err)
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if rsp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("rerank api status: %d, body: %s", rsp.StatusCode, string(data))
	}
	var parsed cohereRerankResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return parsed.Results, nil
}

// ApplyRerank reorders candidates with rr and returns the top topN. A
// nil reranker or a remote failure degrades to the incoming order
// truncated to topN, so retrieval quality only ever improves.
func ApplyRerank(ctx context.Context, rr Reranker, query string, candidates []model.Candidate, topN int) []model.Candidate {
	if len(candidates) > rerankPoolCap {
		candidates = candidates[:rerankPoolCap]
	}
	fallback := candidates
	if len(fallback) > topN {
		fallback = fallback[:topN]
	}
	if rr == nil || len(candidates) == 0 {
		return fallback
	}
	documents := make([]string, 0, len(candidates))
	for _, c := range candidates {
		documents = append(documents, c.Payload.Text)
	}
	// The API rejects top_n larger than the document list.
	if topN > len(documents) {
		topN = len(documents)
	}
	items, err := rr.Rerank(ctx, query, documents, topN)
	if err != nil {
		logutil.GetLogger(ctx).Warn("rerank failed, keeping fused order", zap.Error(err))
		return fallback
	}
	out := make([]model.Candidate, 0, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		cand := candidates[item.Index]
		cand.RerankScore = item.RelevanceScore
		cand.Score = item.RelevanceScore
		out = append(out, cand)
	}
	if len(out) == 0 {
		return fallback
	}
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
