package lexical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBM25_ScoresMatchingDocHigher(t *testing.T) {
	corpus := [][]string{
		{"grand", "prize", "cash", "tournament"},
		{"registration", "opens", "march"},
		{"grand", "opening", "ceremony"},
	}
	scorer := newBM25(corpus)
	scores := scorer.scores([]string{"grand", "prize"})
	require.Len(t, scores, 3)
	require.Greater(t, scores[0], scores[2])
	require.Equal(t, 0.0, scores[1])
}

func TestBM25_UnknownTermScoresZero(t *testing.T) {
	scorer := newBM25([][]string{{"alpha", "beta"}})
	scores := scorer.scores([]string{"gamma"})
	require.Equal(t, 0.0, scores[0])
}

func TestBM25_EmptyQuery(t *testing.T) {
	scorer := newBM25([][]string{{"alpha", "beta"}})
	scores := scorer.scores(nil)
	require.Equal(t, 0.0, scores[0])
}
