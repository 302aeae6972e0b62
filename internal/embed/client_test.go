package embed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls   int
	batches [][]string
	fail    error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

func TestEmbed_CacheHitSkipsProvider(t *testing.T) {
	fake := &fakeEmbedder{}
	cache := NewCache(nil, "")
	client := NewClient(fake, cache, ClientOptions{BatchDelay: 1})

	first, err := client.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	second, err := client.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)
	require.Equal(t, first, second)
}

func TestEmbed_NormalizationUnifiesCacheKeys(t *testing.T) {
	fake := &fakeEmbedder{}
	cache := NewCache(nil, "")
	client := NewClient(fake, cache, ClientOptions{BatchDelay: 1})

	_, err := client.Embed(context.Background(), []string{"hello   world"})
	require.NoError(t, err)
	_, err = client.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)
}

func TestEmbed_Batching(t *testing.T) {
	fake := &fakeEmbedder{}
	cache := NewCache(nil, "")
	client := NewClient(fake, cache, ClientOptions{BatchSize: 2, BatchDelay: 1})

	texts := []string{"one", "two", "three", "four", "five"}
	vectors, err := client.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	require.Equal(t, 3, fake.calls)
	require.Len(t, fake.batches[0], 2)
	require.Len(t, fake.batches[2], 1)
}

func TestEmbed_OrderPreserved(t *testing.T) {
	fake := &fakeEmbedder{}
	cache := NewCache(nil, "")
	client := NewClient(fake, cache, ClientOptions{BatchDelay: 1})

	// Prime the cache with one middle entry so the next call mixes
	// cached and uncached texts.
	_, err := client.Embed(context.Background(), []string{"bb"})
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 1}, vectors[0])
	require.Equal(t, []float32{2, 1}, vectors[1])
	require.Equal(t, []float32{3, 1}, vectors[2])
}

func TestEmbed_ProviderErrorPropagates(t *testing.T) {
	fake := &fakeEmbedder{fail: fmt.Errorf("backend down")}
	client := NewClient(fake, NewCache(nil, ""), ClientOptions{BatchDelay: 1})

	_, err := client.Embed(context.Background(), []string{"text"})
	require.Error(t, err)
}

func TestFingerprint_Stable(t *testing.T) {
	require.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	require.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
}
