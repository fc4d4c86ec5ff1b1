package port

import (
	"context"

	"docqa/internal/domain"
)

// VectorStore persists chunk records per namespace and answers
// nearest-neighbor queries. A namespace is created implicitly on first
// upsert and is never merged with another.
type VectorStore interface {
	// UpsertMany adds or replaces records by id within the namespace.
	UpsertMany(ctx context.Context, namespace string, items []domain.StoredChunk) error

	// Query returns up to topK records ordered by descending similarity.
	// An unknown namespace yields an empty result, not an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.ScoredChunk, error)

	// Count returns the number of records in the namespace.
	Count(ctx context.Context, namespace string) (int, error)

	// Namespaces lists all known namespaces.
	Namespaces(ctx context.Context) ([]string, error)
}
