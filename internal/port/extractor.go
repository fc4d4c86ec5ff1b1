package port

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	// Extract returns the document text, or a domain.ExtractionError
	// when no usable text is found.
	Extract(data []byte, name string) (string, error)
}
