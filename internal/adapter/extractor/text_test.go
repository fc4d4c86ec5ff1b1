package extractor

import (
	"errors"
	"testing"

	"docqa/internal/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := NewTextExtractor()

	text, err := e.Extract([]byte("Paris is the capital of France."), "facts.txt")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Paris is the capital of France." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestExtractRejectsUnusableInput(t *testing.T) {
	e := NewTextExtractor()

	cases := map[string][]byte{
		"empty":       nil,
		"whitespace":  []byte("   \n\t  "),
		"binary":      {0x00, 0x01, 0x02, 'a'},
		"invalid-utf": {0xff, 0xfe, 0xfd},
	}

	for name, data := range cases {
		_, err := e.Extract(data, name)
		if err == nil {
			t.Errorf("%s: expected extraction error", name)
			continue
		}
		var extractionErr *domain.ExtractionError
		if !errors.As(err, &extractionErr) {
			t.Errorf("%s: expected ExtractionError, got %v", name, err)
		}
	}
}
