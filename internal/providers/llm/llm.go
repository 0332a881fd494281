package llm

import "context"

// Provider runs a single-turn completion that must return JSON text.
type Provider interface {
	// Complete sends the prompt as one user message with JSON response
	// mode and returns the raw text plus the model that served it.
	Complete(ctx context.Context, model, prompt string) (content string, servedModel string, err error)
	Close() error
}
