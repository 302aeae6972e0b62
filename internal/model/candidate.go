package model

// Candidate is one retrieval hit moving through the ranking stages.
// Score is the score of the current stage; the per-stage fields keep
// the earlier values for verbose responses and debugging.
type Candidate struct {
	ID          string       `json:"id"`
	Score       float64      `json:"score"`
	Payload     ChunkPayload `json:"metadata"`
	VectorScore float64      `json:"vector_score,omitempty"`
	BM25Score   float64      `json:"bm25_score,omitempty"`
	RerankScore float64      `json:"rerank_score,omitempty"`
}
