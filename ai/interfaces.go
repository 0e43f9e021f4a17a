package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrNoEmbedding if the provider returns nothing for the text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The returned slice holds exactly one embedding per input, in input
	// order, regardless of how the work is batched or how the provider
	// orders its response.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
