// Package embedding provides text embedding via an external embedding service.
package embedding

import "context"

// Embedder produces vector embeddings for text. The same Embedder must be
// used at index time and at query time so all vectors share one embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
