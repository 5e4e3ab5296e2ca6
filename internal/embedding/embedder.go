// Package embedding provides text embedding via the OpenAI API, with caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be
// deterministic for identical input and must never substitute a zero vector
// on failure; errors propagate to the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
