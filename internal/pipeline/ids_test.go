package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDocID_Deterministic(t *testing.T) {
	a := DocID("https://example.com/doc.pdf")
	b := DocID("https://example.com/doc.pdf")
	require.Equal(t, a, b)
	require.Len(t, a, 40)
	require.NotEqual(t, a, DocID("https://example.com/other.pdf"))
}

func TestChunkID_DeterministicUUID(t *testing.T) {
	docID := DocID("https://example.com/doc.pdf")
	a := ChunkID(docID, 3)
	b := ChunkID(docID, 3)
	require.Equal(t, a, b)
	require.NotEqual(t, a, ChunkID(docID, 4))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(5), parsed.Version())
}
