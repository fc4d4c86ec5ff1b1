package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	// MinTopK and MaxTopK bound how many chunks a caller may request.
	MinTopK = 1
	MaxTopK = 20

	maxCitationChars = 200

	systemInstruction = `You are a question-answering assistant. Answer using ONLY the provided context.
Cite the chunk IDs you used in square brackets, e.g. [report-chunk-2].
If the context does not contain enough information to answer, say so explicitly.`

	insufficientAnswer = "I don't have enough information in the uploaded document to answer that question."
)

// Any bracketed token is a citation candidate; tokens that don't match
// a retrieved chunk id are dropped below.
var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// AskUseCase answers a question against one namespace: embed the
// question, retrieve the closest chunks, ask the completion model with
// the chunks as context, then keep only citations that name a chunk
// actually retrieved.
type AskUseCase struct {
	embedder  port.Embedder
	store     port.VectorStore
	completer port.Completer
	log       *slog.Logger
}

func NewAskUseCase(embedder port.Embedder, store port.VectorStore, completer port.Completer, log *slog.Logger) *AskUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &AskUseCase{
		embedder:  embedder,
		store:     store,
		completer: completer,
		log:       log,
	}
}

func (u *AskUseCase) Ask(ctx context.Context, namespace, question string, topK int) (*domain.Answer, error) {
	if topK < MinTopK || topK > MaxTopK {
		return nil, &domain.ValidationError{
			Msg: fmt.Sprintf("topK must be between %d and %d, got %d", MinTopK, MaxTopK, topK),
		}
	}
	if strings.TrimSpace(question) == "" {
		return nil, &domain.ValidationError{Msg: "question is required"}
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, &domain.ValidationError{Msg: "namespace is required"}
	}

	vector, err := u.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question failed: %w", err)
	}

	retrieved, err := u.store.Query(ctx, namespace, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if len(retrieved) == 0 {
		u.log.Debug("no chunks retrieved", "namespace", namespace)
		return &domain.Answer{
			Answer:    insufficientAnswer,
			Citations: []domain.Citation{},
		}, nil
	}

	prompt := buildPrompt(retrieved, question)
	answer, err := u.completer.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	citations := extractCitations(answer, retrieved, u.log)

	return &domain.Answer{
		Answer:        answer,
		Citations:     citations,
		ChunksFound:   len(retrieved),
		CitationsUsed: len(citations),
	}, nil
}

// buildPrompt assembles the context block in similarity-descending
// order, each chunk tagged with its id so the model can cite it.
func buildPrompt(retrieved []domain.ScoredChunk, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n\n")
	for i, scored := range retrieved {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("[")
		sb.WriteString(scored.Chunk.ID)
		sb.WriteString("] ")
		sb.WriteString(scored.Chunk.Text)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

// extractCitations scans the answer for bracketed tokens and keeps each
// token that exactly matches a retrieved chunk id, once. Unknown tokens
// are hallucinated or incidental brackets and are dropped silently.
func extractCitations(answer string, retrieved []domain.ScoredChunk, log *slog.Logger) []domain.Citation {
	byID := make(map[string]domain.StoredChunk, len(retrieved))
	for _, scored := range retrieved {
		byID[scored.Chunk.ID] = scored.Chunk
	}

	citations := []domain.Citation{}
	seen := make(map[string]bool)

	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		token := match[1]
		if seen[token] {
			continue
		}
		chunk, ok := byID[token]
		if !ok {
			log.Debug("dropping citation not among retrieved chunks", "token", token)
			continue
		}
		seen[token] = true
		citations = append(citations, domain.Citation{
			ID:   chunk.ID,
			Text: truncateText(chunk.Text, maxCitationChars),
		})
	}

	return citations
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
