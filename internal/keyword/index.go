// Package keyword provides a full-text index over chunks, used as a fallback
// when semantic retrieval finds nothing relevant.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Index defines full-text indexing and search over chunks.
type Index interface {
	Index(ctx context.Context, chunk *models.Chunk) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	// Reset discards all indexed chunks. Rebuilds reset once and re-index the
	// whole corpus rather than patching entries.
	Reset(ctx context.Context) error
	Close() error
}

// Result is a keyword search hit. ID is the chunk ID.
type Result struct {
	ID    string
	Score float64
}
