package port

import "context"

// Completer produces an answer from a system instruction and a user prompt.
// It is treated as a black box; the returned prose may contain citation
// markers in square brackets.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
