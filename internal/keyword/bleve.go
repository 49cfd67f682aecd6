package keyword

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// chunkFields is the subset of a chunk that gets indexed for full-text search.
type chunkFields struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// BleveIndex implements Index using Bleve. The mutex guards the index handle
// itself: Reset swaps it while queries keep arriving, so readers take the
// read lock and the swap takes the write lock. Bleve handles concurrent
// reads and writes on a single handle internally.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// NewBleveIndex creates a Bleve index at path, replacing any existing one.
// The keyword index is rebuilt together with the vector index, so stale
// contents are never reopened.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove stale keyword index: %w", err)
	}
	return newBleveAt(path)
}

// OpenBleveIndex opens an existing Bleve index at path, creating an empty one
// if it does not exist. Used by the server, where the same handle serves
// queries and full rebuilds.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open keyword index: %w", openErr)
		}
		return &BleveIndex{index: index, path: path}, nil
	}
	return newBleveAt(path)
}

func newBleveAt(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	chunkMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): queries match
	// the exact words that appear in the documentation.
	textField.Analyzer = standard.Name
	chunkMapping.AddFieldMappingsAt("content", textField)
	chunkMapping.AddFieldMappingsAt("source", textField)
	im.DefaultMapping = chunkMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &BleveIndex{index: index, path: path}, nil
}

// Index adds one chunk to the index.
func (b *BleveIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Index(chunk.ID, chunkFields{Content: chunk.Content, Source: chunk.Source})
}

// Search runs a match query over chunk contents and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Reset closes the index, deletes it from disk, and recreates it empty.
// Holding the write lock means concurrent searches wait for the fresh handle
// instead of hitting a closed one.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("close keyword index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("remove keyword index: %w", err)
	}
	fresh, err := newBleveAt(b.path)
	if err != nil {
		return err
	}
	b.index = fresh.index
	return nil
}

// Close releases the underlying index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}
