// Package vector provides the similarity index over chunk embeddings.
package vector

import "context"

// Index stores chunk embeddings and answers nearest-neighbor queries.
// The index is append-only: corpus changes are reflected by a full rebuild,
// never by patching entries in place.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Replace swaps the entire index contents in one step. Callers embed the
	// whole corpus first, so a failed rebuild never leaves a partial index.
	Replace(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single similarity hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64 // cosine similarity in [0, 1]
}
