// Package llm defines the completion and embedding collaborators the
// pipeline talks to, with Gemini and OpenAI-compatible implementations.
package llm

import "context"

// EmbeddingDimensions is the fixed vector length every embedder must return.
const EmbeddingDimensions = 384

// Client produces a text completion for a prompt. Implementations must be
// safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	Model() string
}

// Embedder turns free text into a fixed-length vector and reports an
// approximate token count for the input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, int, error)
	Dimensions() int
}
