package chunker

import (
	"strings"
	"unicode"
)

// CharsPerToken is the conversion constant used when sub-word
// tokenization is unavailable: roughly 3.5 characters per token for
// English prose.
const CharsPerToken = 3.5

// TokenCounter estimates the number of model tokens in a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates token counts from word counts. The
// average English word maps to about 1.3 sub-word tokens.
type HeuristicCounter struct{}

func NewHeuristicCounter() HeuristicCounter {
	return HeuristicCounter{}
}

func (HeuristicCounter) Count(text string) int {
	words := countWords(text)
	if words == 0 {
		return 0
	}
	return int(float64(words) * 1.3)
}

func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if !inWord {
				count++
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return count
}

// trailingWords returns the suffix of text whose estimated token count
// reaches overlapTokens, cut on word boundaries. Used to seed the next
// chunk with cross-boundary context.
func trailingWords(text string, overlapTokens int, counter TokenCounter) string {
	if overlapTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	start := len(words)
	for start > 0 {
		candidate := strings.Join(words[start-1:], " ")
		if counter.Count(candidate) > overlapTokens {
			break
		}
		start--
	}
	if start == len(words) {
		start = len(words) - 1
	}
	return strings.Join(words[start:], " ")
}
