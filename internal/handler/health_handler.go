package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/embed"
	"github.com/xxxsen/docqa/internal/lexical"
)

// HealthConfig is the effective retrieval configuration echoed by the
// health endpoint so deployments can be checked without reading files.
type HealthConfig struct {
	GenerateModel  string  `json:"generate_model"`
	EmbedModel     string  `json:"embed_model"`
	EmbedDim       int     `json:"embed_dim"`
	VectorStore    string  `json:"vector_store"`
	RetrievalLimit int     `json:"retrieval_limit"`
	RerankTopN     int     `json:"rerank_top_n"`
	ContextChunks  int     `json:"context_chunks"`
	ScoreThreshold float64 `json:"score_threshold"`
	HybridSearch   bool    `json:"hybrid_search"`
	RerankEnabled  bool    `json:"rerank_enabled"`
}

type HealthHandler struct {
	cfg      HealthConfig
	cache    *embed.Cache
	lexIndex *lexical.Index
}

func NewHealthHandler(cfg HealthConfig, cache *embed.Cache, lexIndex *lexical.Index) *HealthHandler {
	return &HealthHandler{cfg: cfg, cache: cache, lexIndex: lexIndex}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "docqa",
		"status":  "ok",
	})
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                  "healthy",
		"config":                  h.cfg,
		"embedding_cache_entries": h.cache.Len(),
		"lexical_index_ready":     h.lexIndex.Ready(),
		"lexical_index_entries":   h.lexIndex.Size(),
	})
}
