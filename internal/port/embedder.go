package port

import (
	"context"

	"docqa/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedBatch embeds the given chunks, preserving input order.
	// Returns one result per chunk.
	EmbedBatch(ctx context.Context, chunks []domain.TextChunk) ([]domain.EmbeddingResult, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
