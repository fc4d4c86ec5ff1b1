package domain

// TextChunk is a bounded segment of a source document produced by a chunker.
// IDs are sequential per source: "{source}-chunk-{index}".
type TextChunk struct {
	ID         string
	Text       string
	TokenCount int
}

// EmbeddingResult pairs a chunk with its embedding vector.
type EmbeddingResult struct {
	ChunkID string
	Vector  []float32
}

// StoredChunk is the durable record held by a vector store.
type StoredChunk struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Vector []float32 `json:"vector"`
}

// ScoredChunk is a stored chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk StoredChunk
	Score float64
}

// Citation is a retrieved chunk referenced by id in a generated answer.
type Citation struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Answer is the result of a question against one namespace.
type Answer struct {
	Answer        string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	ChunksFound   int        `json:"chunks_found"`
	CitationsUsed int        `json:"citations_used"`
}
