package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/filestore"
	"github.com/xxxsen/docqa/internal/model"
)

func buildTestIndex(t *testing.T, store filestore.Store) *Index {
	t.Helper()
	idx := NewIndex(store, "lexical_index.json")
	chunks := []string{
		"The grand prize for the tournament is $500 in cash.",
		"Registration opens in March and closes in April.",
		"Players must bring their own equipment to every match.",
	}
	ids := []string{"c1", "c2", "c3"}
	payloads := []model.ChunkPayload{
		{DocID: "d1", Source: "rules.md", Text: chunks[0], ChunkIndex: 0},
		{DocID: "d1", Source: "rules.md", Text: chunks[1], ChunkIndex: 1},
		{DocID: "d2", Source: "faq.md", Text: chunks[2], ChunkIndex: 0},
	}
	idx.Build(chunks, ids, payloads)
	return idx
}

func TestIndexSearch_RanksMatchingChunkFirst(t *testing.T) {
	idx := buildTestIndex(t, nil)
	results := idx.Search("What is the grand prize?", []string{"d1", "d2"}, 10)
	require.NotEmpty(t, results)
	require.Equal(t, "c1", results[0].ID)
	require.Greater(t, results[0].BM25Score, 0.0)
}

func TestIndexSearch_FiltersByDocument(t *testing.T) {
	idx := buildTestIndex(t, nil)
	results := idx.Search("equipment match players", []string{"d1"}, 10)
	for _, r := range results {
		require.Equal(t, "d1", r.Payload.DocID)
	}
}

func TestIndexSearch_NoMatchReturnsEmpty(t *testing.T) {
	idx := buildTestIndex(t, nil)
	results := idx.Search("zebra xylophone", []string{"d1", "d2"}, 10)
	require.Empty(t, results)
}

func TestIndex_NotReadyBeforeBuild(t *testing.T) {
	idx := NewIndex(nil, "lexical_index.json")
	require.False(t, idx.Ready())
	require.Empty(t, idx.Search("anything", []string{"d1"}, 10))
}

func TestIndex_FlushLoadRoundtrip(t *testing.T) {
	store, err := filestore.New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	idx := buildTestIndex(t, store)
	require.NoError(t, idx.Flush(context.Background()))

	restored := NewIndex(store, "lexical_index.json")
	restored.Load(context.Background())
	require.True(t, restored.Ready())
	require.Equal(t, idx.Size(), restored.Size())

	results := restored.Search("grand prize", []string{"d1"}, 10)
	require.NotEmpty(t, results)
	require.Equal(t, "c1", results[0].ID)
}

func TestIndex_LoadMissingBlobDegrades(t *testing.T) {
	store, err := filestore.New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	idx := NewIndex(store, "lexical_index.json")
	idx.Load(context.Background())
	require.False(t, idx.Ready())
}
