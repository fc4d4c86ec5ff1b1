package extractor

import (
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// TextExtractor handles plain-text and markdown documents. Binary input
// and input with no printable text are rejected with an ExtractionError;
// image-only formats need an OCR-capable extractor behind the same port.
type TextExtractor struct{}

func NewTextExtractor() TextExtractor {
	return TextExtractor{}
}

func (TextExtractor) Extract(data []byte, name string) (string, error) {
	if len(data) == 0 {
		return "", &domain.ExtractionError{Source: name, Msg: "empty document"}
	}
	if !utf8.Valid(data) {
		return "", &domain.ExtractionError{Source: name, Msg: "not valid UTF-8 text"}
	}

	text := string(data)
	if strings.IndexByte(text, 0) >= 0 {
		return "", &domain.ExtractionError{Source: name, Msg: "binary content"}
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.ExtractionError{Source: name, Msg: "no usable text found"}
	}

	return text, nil
}
