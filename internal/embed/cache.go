package embed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/filestore"
)

// Fingerprint returns the content digest used as the embedding cache
// key. Same normalized text, same fingerprint.
func Fingerprint(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Cache is the process-wide fingerprint-to-vector store. Entries are
// never evicted; unbounded growth is an accepted tradeoff. It is loaded
// once at startup and flushed to durable storage at shutdown (and
// periodically by the flush job).
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float32

	store   filestore.Store
	blobKey string
}

func NewCache(store filestore.Store, blobKey string) *Cache {
	return &Cache{
		entries: make(map[string][]float32),
		store:   store,
		blobKey: blobKey,
	}
}

func (c *Cache) Get(fingerprint string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[fingerprint]
	return vec, ok
}

func (c *Cache) Put(fingerprint string, vector []float32) {
	c.mu.Lock()
	c.entries[fingerprint] = vector
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]float32)
	c.mu.Unlock()
}

// Load restores the persisted cache. Missing or corrupt storage
// degrades to an empty cache and never fails startup.
func (c *Cache) Load(ctx context.Context) {
	if c.store == nil {
		return
	}
	data, err := c.store.Load(ctx, c.blobKey)
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache not loaded, starting empty", zap.Error(err))
		return
	}
	entries := make(map[string][]float32)
	if err := json.Unmarshal(data, &entries); err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache blob corrupt, starting empty", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	logutil.GetLogger(ctx).Info("embedding cache loaded", zap.Int("entries", len(entries)))
}

func (c *Cache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.mu.RLock()
	data, err := json.Marshal(c.entries)
	size := len(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, c.blobKey, data); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("embedding cache persisted", zap.Int("entries", size))
	return nil
}
