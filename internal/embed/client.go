package embed

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/docqa/internal/ai"
	"github.com/xxxsen/docqa/internal/pkg/retry"
	"github.com/xxxsen/docqa/internal/textproc"
)

const (
	defaultBatchSize   = 10
	defaultBatchDelay  = 200 * time.Millisecond
	defaultMaxAttempts = 3
)

// Client embeds texts through an external provider, front-loaded by the
// fingerprint cache. Uncached texts go out in fixed-size batches with a
// pacing delay between batches; rate-limit failures are retried with
// exponential backoff, anything else aborts the whole call.
type Client struct {
	embedder  ai.IEmbedder
	cache     *Cache
	batchSize int
	limiter   *rate.Limiter
	policy    retry.Policy
}

type ClientOptions struct {
	BatchSize   int
	BatchDelay  time.Duration
	MaxAttempts int
}

func NewClient(embedder ai.IEmbedder, cache *Cache, opts ClientOptions) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = defaultBatchDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Client{
		embedder:  embedder,
		cache:     cache,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(rate.Every(opts.BatchDelay), 1),
		policy:    retry.NewPolicy(opts.MaxAttempts, time.Second, ai.IsRateLimit),
	}
}

func (c *Client) ModelName() string {
	if c.embedder == nil {
		return ""
	}
	return c.embedder.ModelName()
}

// Embed returns one vector per input text, in input order. Texts are
// normalized before fingerprinting so cache keys are stable across
// encoding artifacts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = textproc.NormalizeForEmbedding(t)
	}

	vectors := make([][]float32, len(texts))
	var pending []string
	var pendingIdx []int
	hits := 0
	for i, t := range normalized {
		if vec, ok := c.cache.Get(Fingerprint(t)); ok {
			vectors[i] = vec
			hits++
			continue
		}
		pending = append(pending, t)
		pendingIdx = append(pendingIdx, i)
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hits", zap.Int("hits", hits), zap.Int("misses", len(pending)))
	}
	if len(pending) == 0 {
		return vectors, nil
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		// The first Wait consumes the limiter's initial token, so only
		// batches after the first are delayed.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		batch := pending[start:end]
		var result [][]float32
		err := c.policy.Do(ctx, func() error {
			var callErr error
			result, callErr = c.embedder.EmbedBatch(ctx, batch)
			return callErr
		})
		if err != nil {
			return nil, err
		}
		for j, vec := range result {
			idx := pendingIdx[start+j]
			c.cache.Put(Fingerprint(normalized[idx]), vec)
			vectors[idx] = vec
		}
	}
	return vectors, nil
}

// EmbedOne is a convenience wrapper for query embedding.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
