package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port           int               `json:"port"`
	APIKey         string            `json:"api_key"`
	RateWindowMS   int               `json:"rate_window_ms"`
	LogConfig      logger.LogConfig  `json:"log_config"`
	FileStore      FileStoreConfig   `json:"file_store"`
	AI             AIConfig          `json:"ai"`
	VectorStore    VectorStoreConfig `json:"vector_store"`
	Retrieval      RetrievalConfig   `json:"retrieval"`
	StateFlushCron string            `json:"state_flush_cron"`
}

type FileStoreConfig struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args"`
}

type AIConfig struct {
	Provider       string                 `json:"provider"`
	Args           map[string]interface{} `json:"args"`
	EmbedProvider  string                 `json:"embed_provider"`
	EmbedArgs      map[string]interface{} `json:"embed_args"`
	GenerateModel  string                 `json:"generate_model"`
	EmbedModel     string                 `json:"embed_model"`
	EmbedDim       int                    `json:"embed_dim"`
	TimeoutSec     int                    `json:"timeout_sec"`
	RerankAPIKey   string                 `json:"rerank_api_key"`
	RerankModel    string                 `json:"rerank_model"`
	RerankEndpoint string                 `json:"rerank_endpoint"`
}

type VectorStoreConfig struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args"`
}

type RetrievalConfig struct {
	Limit             int     `json:"limit"`
	RerankTopN        int     `json:"rerank_top_n"`
	ContextChunks     int     `json:"context_chunks"`
	ScoreThreshold    float64 `json:"score_threshold"`
	Hybrid            *bool   `json:"hybrid"`
	QuestionDelayMS   int     `json:"question_delay_ms"`
	EmbedBatchSize    int     `json:"embed_batch_size"`
	EmbedBatchDelayMS int     `json:"embed_batch_delay_ms"`
	EmbedMaxAttempts  int     `json:"embed_max_attempts"`
	Workers           int     `json:"workers"`
}

// HybridEnabled defaults to true when the field is omitted.
func (r RetrievalConfig) HybridEnabled() bool {
	if r.Hybrid == nil {
		return true
	}
	return *r.Hybrid
}

// EmbedDimension returns the configured dimension or infers it from a
// known embedding model name.
func (a AIConfig) EmbedDimension() int {
	if a.EmbedDim > 0 {
		return a.EmbedDim
	}
	switch {
	case strings.Contains(a.EmbedModel, "3-large"):
		return 3072
	case strings.Contains(a.EmbedModel, "3-small"):
		return 1536
	case strings.Contains(a.EmbedModel, "embedding-001"), strings.Contains(a.EmbedModel, "text-embedding-004"):
		return 768
	}
	return 1536
}

// Load reads a JSON config file. ${VAR} references anywhere in the file
// are expanded from the environment before decoding, so secrets can
// stay out of the file itself.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	if cfg.AI.EmbedArgs == nil {
		cfg.AI.EmbedArgs = cfg.AI.Args
	}
	if cfg.AI.GenerateModel == "" {
		return nil, fmt.Errorf("ai.generate_model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.TimeoutSec == 0 {
		cfg.AI.TimeoutSec = 30
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Retrieval.Limit == 0 {
		cfg.Retrieval.Limit = 40
	}
	if cfg.Retrieval.RerankTopN == 0 {
		cfg.Retrieval.RerankTopN = 12
	}
	if cfg.Retrieval.ContextChunks == 0 {
		cfg.Retrieval.ContextChunks = 8
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.12
	}
	if cfg.Retrieval.QuestionDelayMS == 0 {
		cfg.Retrieval.QuestionDelayMS = 200
	}
	if cfg.Retrieval.Workers == 0 {
		cfg.Retrieval.Workers = 1
	}
	if cfg.StateFlushCron == "" {
		cfg.StateFlushCron = "@every 5m"
	}
	return &cfg, nil
}
