package chunker

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// SentenceChunker splits text into overlapping, token-bounded chunks cut
// on sentence boundaries. Sentences are accumulated greedily until the
// token ceiling would be exceeded; each new chunk is seeded with the
// trailing words of the previous one.
type SentenceChunker struct {
	maxTokens     int
	overlapTokens int
	counter       TokenCounter
}

func NewSentenceChunker(maxTokens, overlapTokens int, counter TokenCounter) *SentenceChunker {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= maxTokens {
		overlapTokens = maxTokens / 4
	}
	return &SentenceChunker{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		counter:       counter,
	}
}

func (c *SentenceChunker) Chunk(text, source string) ([]domain.TextChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sentences := splitSentences(text)

	var chunks []domain.TextChunk
	var current strings.Builder
	currentTokens := 0
	index := 0

	for _, sentence := range sentences {
		sentenceTokens := c.counter.Count(sentence)

		if currentTokens > 0 && currentTokens+sentenceTokens > c.maxTokens {
			chunkText := current.String()
			chunks = append(chunks, newChunk(source, index, chunkText, currentTokens))
			index++

			seed := trailingWords(chunkText, c.overlapTokens, c.counter)
			current.Reset()
			current.WriteString(seed)
			currentTokens = c.counter.Count(seed)
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, newChunk(source, index, current.String(), currentTokens))
	}

	return chunks, nil
}

func newChunk(source string, index int, text string, tokens int) domain.TextChunk {
	return domain.TextChunk{
		ID:         ChunkID(source, index),
		Text:       strings.TrimSpace(text),
		TokenCount: tokens,
	}
}

// ChunkID derives the stable chunk identifier for a source and position.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", source, index)
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace. Text with no boundary at all comes back as one sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
