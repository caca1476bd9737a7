// Package embedding provides text embedding via the Ollama HTTP API, with a
// deterministic mock for tests and offline use.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no embedding model can be reached.
var ErrUnavailable = errors.New("embedding: provider unavailable")

// Embedder produces vector embeddings for text. Dimensionality is fixed at the
// first encode call and stays constant for the lifetime of the embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}
