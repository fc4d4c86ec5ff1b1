package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"docqa/internal/adapter/cache"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// UploadUseCase runs the ingestion pipeline: extract text, chunk it,
// embed the chunks in order, and upsert them into one namespace.
type UploadUseCase struct {
	extractor    port.Extractor
	chunker      port.Chunker
	embedder     port.Embedder
	store        port.VectorStore
	cache        *cache.EmbeddingCache
	maxFileBytes int64
	log          *slog.Logger
}

func NewUploadUseCase(
	extractor port.Extractor,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	embeddingCache *cache.EmbeddingCache,
	maxFileBytes int64,
	log *slog.Logger,
) *UploadUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &UploadUseCase{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		cache:        embeddingCache,
		maxFileBytes: maxFileBytes,
		log:          log,
	}
}

// UploadInput is a raw document plus its source name. Namespace is
// derived from the source when left empty.
type UploadInput struct {
	Data      []byte
	Source    string
	Namespace string
}

// UploadResult reports what was ingested.
type UploadResult struct {
	Namespace   string `json:"namespace"`
	ChunkCount  int    `json:"chunk_count"`
	VectorCount int    `json:"vector_count"`
	Model       string `json:"model"`
}

// ProgressFunc reports embedded-chunk counts during an upload.
type ProgressFunc func(done, total int)

func (u *UploadUseCase) Upload(ctx context.Context, in UploadInput, progress ProgressFunc) (*UploadResult, error) {
	if strings.TrimSpace(in.Source) == "" {
		return nil, &domain.ValidationError{Msg: "source name is required"}
	}
	if len(in.Data) == 0 {
		return nil, &domain.ValidationError{Msg: "document is empty"}
	}
	if u.maxFileBytes > 0 && int64(len(in.Data)) > u.maxFileBytes {
		return nil, &domain.ValidationError{
			Msg: fmt.Sprintf("document exceeds size limit of %d bytes", u.maxFileBytes),
		}
	}

	text, err := u.extractor.Extract(in.Data, in.Source)
	if err != nil {
		return nil, err
	}

	chunks, err := u.chunker.Chunk(text, in.Source)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, &domain.ExtractionError{Source: in.Source, Msg: "no chunkable text found"}
	}

	namespace := in.Namespace
	if namespace == "" {
		namespace = deriveNamespace(in.Source)
	}

	u.log.Info("uploading document",
		"source", in.Source, "namespace", namespace, "chunks", len(chunks))

	// Embed and store batch by batch so a chunk's id-to-text pairing is
	// fixed before anything is written, and progress stays observable.
	const uploadBatch = 100
	vectorCount := 0

	for i := 0; i < len(chunks); i += uploadBatch {
		end := i + uploadBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		results, err := u.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		if len(results) != len(batch) {
			return nil, &domain.CountMismatchError{Sent: len(batch), Got: len(results)}
		}

		items := make([]domain.StoredChunk, len(batch))
		for j, chunk := range batch {
			if results[j].ChunkID != chunk.ID {
				return nil, fmt.Errorf("embedding order violated: expected %s, got %s",
					chunk.ID, results[j].ChunkID)
			}
			items[j] = domain.StoredChunk{
				ID:     chunk.ID,
				Text:   chunk.Text,
				Source: in.Source,
				Vector: results[j].Vector,
			}
		}

		if err := u.store.UpsertMany(ctx, namespace, items); err != nil {
			return nil, fmt.Errorf("storing vectors failed: %w", err)
		}

		vectorCount += len(items)
		if progress != nil {
			progress(vectorCount, len(chunks))
		}
	}

	if u.cache != nil {
		u.cache.Invalidate()
	}

	return &UploadResult{
		Namespace:   namespace,
		ChunkCount:  len(chunks),
		VectorCount: vectorCount,
		Model:       u.embedder.ModelName(),
	}, nil
}

// deriveNamespace builds a fresh namespace for a source: slug of the
// base name plus a random suffix, so re-uploading the same document
// never collides with an earlier, possibly partial, upload.
func deriveNamespace(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	var slug strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(base) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			slug.WriteRune(r)
			lastDash = false
		case !lastDash:
			slug.WriteRune('-')
			lastDash = true
		}
		if slug.Len() >= 40 {
			break
		}
	}

	name := strings.Trim(slug.String(), "-")
	if name == "" {
		name = "doc"
	}

	var suffix [4]byte
	rand.Read(suffix[:])
	return name + "-" + hex.EncodeToString(suffix[:])
}
