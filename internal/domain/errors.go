package domain

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a transient provider failure that may be retried
// with backoff. Any other embedding failure is terminal.
var ErrRateLimited = errors.New("rate limited")

// ValidationError reports caller input rejected before any external call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// ExtractionError reports that no usable text could be produced from an
// uploaded document.
type ExtractionError struct {
	Source string
	Msg    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.Source, e.Msg)
}

// CountMismatchError reports that an embedding batch returned a different
// number of vectors than texts sent. It signals a data-integrity problem
// and is never retried.
type CountMismatchError struct {
	Sent int
	Got  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", e.Sent, e.Got)
}
