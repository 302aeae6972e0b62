package model

// Chunk is one piece of a split document before indexing.
type Chunk struct {
	Text       string
	Source     string
	ChunkIndex int
}

// ChunkPayload is the metadata stored alongside each chunk vector and
// returned with every retrieval hit.
type ChunkPayload struct {
	DocID      string `json:"doc_id"`
	Source     string `json:"source"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
}
