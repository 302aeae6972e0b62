package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
)

func seedMemory(t *testing.T) Store {
	t.Helper()
	store := NewMemory()
	require.NoError(t, store.Init(context.Background(), 3))
	require.NoError(t, store.Upsert(context.Background(), []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: model.ChunkPayload{DocID: "d1", Text: "alpha"}},
		{ID: "b", Vector: []float32{0.9, 0.1, 0}, Payload: model.ChunkPayload{DocID: "d1", Text: "beta"}},
		{ID: "c", Vector: []float32{0, 1, 0}, Payload: model.ChunkPayload{DocID: "d2", Text: "gamma"}},
	}))
	return store
}

func TestMemorySearch_OrdersBySimilarity(t *testing.T) {
	store := seedMemory(t)
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, []string{"d1", "d2"}, 10, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].ID)
	require.Equal(t, "b", results[1].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestMemorySearch_FiltersByDocID(t *testing.T) {
	store := seedMemory(t)
	results, err := store.Search(context.Background(), []float32{0, 1, 0}, []string{"d2"}, 10, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c", results[0].ID)
}

func TestMemorySearch_AppliesThreshold(t *testing.T) {
	store := seedMemory(t)
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, []string{"d1", "d2"}, 10, 0.995)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
}

func TestMemoryInit_ClearsPoints(t *testing.T) {
	store := seedMemory(t)
	require.NoError(t, store.Init(context.Background(), 3))
	results, err := store.Search(context.Background(), []float32{1, 0, 0}, []string{"d1"}, 10, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryUpsert_Idempotent(t *testing.T) {
	store := seedMemory(t)
	require.NoError(t, store.Upsert(context.Background(), []Point{
		{ID: "a", Vector: []float32{0, 0, 1}, Payload: model.ChunkPayload{DocID: "d1", Text: "replaced"}},
	}))
	results, err := store.Search(context.Background(), []float32{0, 0, 1}, []string{"d1"}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "replaced", results[0].Payload.Text)
}

func TestNew_UnknownTypeFails(t *testing.T) {
	_, err := New("does-not-exist", nil)
	require.Error(t, err)
}
