package lexical

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/filestore"
	"github.com/xxxsen/docqa/internal/model"
)

// Index is the in-memory lexical index over chunk tokens. It is rebuilt
// wholesale on every ingestion, persisted as a single blob, and reloaded
// at startup. A failed reload is non-fatal: the index simply reports not
// ready and retrieval degrades to vector-only.
type Index struct {
	mu       sync.RWMutex
	scorer   *bm25
	corpus   []string
	ids      []string
	payloads map[string]model.ChunkPayload

	store   filestore.Store
	blobKey string
}

type indexBlob struct {
	Corpus   []string                      `json:"corpus"`
	IDs      []string                      `json:"id_map"`
	Payloads map[string]model.ChunkPayload `json:"payload_map"`
}

func NewIndex(store filestore.Store, blobKey string) *Index {
	return &Index{store: store, blobKey: blobKey}
}

// Build replaces the whole index with a freshly tokenized corpus.
// chunks, ids and payloads are parallel slices.
func (i *Index) Build(chunks []string, ids []string, payloads []model.ChunkPayload) {
	tokenized := make([][]string, len(chunks))
	for n, chunk := range chunks {
		tokenized[n] = Tokenize(chunk)
	}
	byID := make(map[string]model.ChunkPayload, len(payloads))
	for n, p := range payloads {
		byID[ids[n]] = p
	}
	i.mu.Lock()
	i.scorer = newBM25(tokenized)
	i.corpus = chunks
	i.ids = ids
	i.payloads = byID
	i.mu.Unlock()
}

func (i *Index) Ready() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.scorer != nil
}

func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.corpus)
}

// Search tokenizes the raw query with the index tokenizer, scores the
// whole corpus, and returns positive-score entries whose owning document
// is in docIDs, best first.
func (i *Index) Search(query string, docIDs []string, limit int) []model.Candidate {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.scorer == nil {
		return nil
	}
	allowed := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		allowed[id] = struct{}{}
	}
	scores := i.scorer.scores(Tokenize(query))
	var results []model.Candidate
	for idx, score := range scores {
		if score <= 0 {
			continue
		}
		chunkID := i.ids[idx]
		payload, ok := i.payloads[chunkID]
		if !ok {
			continue
		}
		if _, ok := allowed[payload.DocID]; !ok {
			continue
		}
		results = append(results, model.Candidate{
			ID:        chunkID,
			Score:     score,
			Payload:   payload,
			BM25Score: score,
		})
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Flush persists the corpus and maps; the scorer itself is derived state
// and is rebuilt on load.
func (i *Index) Flush(ctx context.Context) error {
	if i.store == nil {
		return nil
	}
	i.mu.RLock()
	blob := indexBlob{Corpus: i.corpus, IDs: i.ids, Payloads: i.payloads}
	i.mu.RUnlock()
	if len(blob.Corpus) == 0 {
		return nil
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	if err := i.store.Save(ctx, i.blobKey, data); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("lexical index persisted", zap.Int("entries", len(blob.Corpus)))
	return nil
}

// Load restores a persisted index. Missing or corrupt blobs leave the
// index empty and never fail startup.
func (i *Index) Load(ctx context.Context) {
	if i.store == nil {
		return
	}
	data, err := i.store.Load(ctx, i.blobKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("lexical index not loaded, lexical search unavailable", zap.Error(err))
		return
	}
	var blob indexBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		logutil.GetLogger(ctx).Warn("lexical index blob corrupt, lexical search unavailable", zap.Error(err))
		return
	}
	if len(blob.Corpus) != len(blob.IDs) {
		logutil.GetLogger(ctx).Warn("lexical index blob inconsistent, lexical search unavailable")
		return
	}
	payloads := make([]model.ChunkPayload, len(blob.IDs))
	for n, id := range blob.IDs {
		payloads[n] = blob.Payloads[id]
	}
	i.Build(blob.Corpus, blob.IDs, payloads)
	logutil.GetLogger(ctx).Info("lexical index loaded", zap.Int("entries", len(blob.Corpus)))
}
