package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
)

func cand(id string) model.Candidate {
	return model.Candidate{ID: id, Payload: model.ChunkPayload{DocID: "d1", Text: "text " + id}}
}

func TestFuseRRF_AgreementBeatsSingleList(t *testing.T) {
	vector := []model.Candidate{cand("a"), cand("b")}
	lexical := []model.Candidate{cand("b"), cand("c")}
	fused := FuseRRF(vector, lexical, 10)

	require.Len(t, fused, 3)
	require.Equal(t, "b", fused[0].ID)
	require.InDelta(t, 1.0/62+1.0/61, fused[0].Score, 1e-9)
}

func TestFuseRRF_TopOfBothListsScore(t *testing.T) {
	fused := FuseRRF([]model.Candidate{cand("a")}, []model.Candidate{cand("a")}, 10)
	require.Len(t, fused, 1)
	require.InDelta(t, 2.0/61, fused[0].Score, 1e-9)
}

func TestFuseRRF_SingleListContribution(t *testing.T) {
	fused := FuseRRF([]model.Candidate{cand("a"), cand("b"), cand("c")}, nil, 10)
	require.Len(t, fused, 3)
	for rank, c := range fused {
		require.InDelta(t, 1.0/float64(60+rank+1), c.Score, 1e-9)
	}
}

func TestFuseRRF_DisjointListsBounded(t *testing.T) {
	vector := []model.Candidate{cand("a"), cand("b")}
	lexical := []model.Candidate{cand("c"), cand("d"), cand("e")}
	fused := FuseRRF(vector, lexical, 10)
	require.Len(t, fused, 5)
}

func TestFuseRRF_TruncatesToLimit(t *testing.T) {
	vector := []model.Candidate{cand("a"), cand("b"), cand("c")}
	fused := FuseRRF(vector, nil, 2)
	require.Len(t, fused, 2)
}

func TestFuseRRF_KeepsScoreAnnotations(t *testing.T) {
	v := cand("a")
	v.VectorScore = 0.9
	l := cand("a")
	l.BM25Score = 3.2
	fused := FuseRRF([]model.Candidate{v}, []model.Candidate{l}, 10)
	require.Len(t, fused, 1)
	require.Equal(t, 0.9, fused[0].VectorScore)
	require.Equal(t, 3.2, fused[0].BM25Score)
}
