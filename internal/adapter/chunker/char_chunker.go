package chunker

import (
	"strings"

	"docqa/internal/domain"
)

// CharChunker is the fallback strategy when token counts cannot be
// estimated from words: it operates on raw character windows sized by
// the chars-per-token constant. A chunk is cut at the rightmost period
// on or before the character ceiling, and the window advances by at
// least one character per iteration.
type CharChunker struct {
	ceilingChars int
	overlapChars int
}

func NewCharChunker(maxTokens, overlapTokens int) *CharChunker {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	ceiling := int(float64(maxTokens) * CharsPerToken)
	overlap := int(float64(overlapTokens) * CharsPerToken)
	if overlap >= ceiling {
		overlap = ceiling / 4
	}
	return &CharChunker{
		ceilingChars: ceiling,
		overlapChars: overlap,
	}
}

func (c *CharChunker) Chunk(text, source string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []domain.TextChunk
	index := 0
	start := 0

	for start < len(text) {
		end := start + c.ceilingChars
		if end >= len(text) {
			end = len(text)
		} else if cut := strings.LastIndexByte(text[start:end], '.'); cut >= 0 {
			end = start + cut + 1
		}

		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, domain.TextChunk{
				ID:         ChunkID(source, index),
				Text:       piece,
				TokenCount: int(float64(len(piece)) / CharsPerToken),
			})
			index++
		}

		if end >= len(text) {
			break
		}

		// Slide back by the overlap, but always move forward.
		next := end - c.overlapChars
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}
