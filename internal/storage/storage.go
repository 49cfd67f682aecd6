// Package storage defines persistence for documents and chunks.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage persists documents and their chunks. The chunk store is the source
// of chunk text at query time; the vector index only holds IDs and vectors.
type Storage interface {
	// ReplaceAll atomically swaps the entire corpus for the given documents
	// and chunks. Used by full index rebuilds; either everything is committed
	// or nothing is.
	ReplaceAll(ctx context.Context, docs []*models.Document, chunks []*models.Chunk) error

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
