package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Indexer rebuilds the document, vector, and keyword indices from the corpus
// directory. A rebuild is all-or-nothing: every chunk is embedded before
// anything is persisted, so an embedding failure leaves the previous index
// untouched.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.Index
	keywordIndex keyword.Index
	chunker      *Chunker
	extractor    *extract.Extractor
	config       *config.Config
	logger       *zap.Logger // optional; when set, logs rebuild progress

	// rebuildMu serializes Rebuild across every trigger (CLI, HTTP endpoint,
	// corpus watcher); overlapping rebuilds would interleave their persist
	// phases and leave the indices mixed.
	rebuildMu sync.Mutex
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for rebuild progress output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// New creates an indexer with the given dependencies.
// extractor may be nil; when nil, all files are treated as plain text.
func New(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.Index,
	keywordIndex keyword.Index,
	cfg *config.Config,
	extractor *extract.Extractor,
	opts ...Option,
) *Indexer {
	idx := &Indexer{
		storage:      store,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		chunker:      NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		extractor:    extractor,
		config:       cfg,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Stats summarizes a completed rebuild.
type Stats struct {
	Documents int
	Chunks    int
	Elapsed   time.Duration
}

// Rebuild reads every corpus file, chunks and embeds all of them, and then
// replaces the stored documents, the vector index, and the keyword index in
// one pass. Any error before the persist step aborts the rebuild with the
// previous index intact. Concurrent calls run one at a time.
func (idx *Indexer) Rebuild(ctx context.Context) (*Stats, error) {
	idx.rebuildMu.Lock()
	defer idx.rebuildMu.Unlock()
	start := time.Now()

	docs, chunks, err := idx.loadCorpus()
	if err != nil {
		return nil, err
	}
	if idx.logger != nil {
		idx.logger.Info("corpus loaded",
			zap.Int("documents", len(docs)),
			zap.Int("chunks", len(chunks)))
	}

	if err := idx.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	if err := idx.persist(ctx, docs, chunks); err != nil {
		return nil, err
	}

	stats := &Stats{Documents: len(docs), Chunks: len(chunks), Elapsed: time.Since(start)}
	if idx.logger != nil {
		idx.logger.Info("rebuild complete",
			zap.Int("documents", stats.Documents),
			zap.Int("chunks", stats.Chunks),
			zap.Duration("elapsed", stats.Elapsed))
	}
	return stats, nil
}

// loadCorpus walks the corpus directory and returns the extracted documents
// and their chunks. Any unreadable file aborts the walk; a corpus that cannot
// be read completely must not produce a partial index.
func (idx *Indexer) loadCorpus() ([]*models.Document, []*models.Chunk, error) {
	root, err := filepath.Abs(idx.config.Corpus.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("absolute corpus path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("corpus path is not a directory: %s", root)
	}

	var docs []*models.Document
	var chunks []*models.Chunk
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk %s: %w", path, walkErr)
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !extensionAllowed(ext, idx.config.Corpus.Extensions) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		doc, err := idx.loadDocument(path, rel)
		if err != nil {
			return fmt.Errorf("read corpus file %s: %w", rel, err)
		}
		if doc == nil {
			if idx.logger != nil {
				idx.logger.Warn("skipping empty document", zap.String("path", rel))
			}
			return nil
		}
		docs = append(docs, doc)
		chunks = append(chunks, idx.chunker.Chunk(doc)...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return docs, chunks, nil
}

// loadDocument extracts one corpus file. Returns (nil, nil) for files whose
// extracted text is empty.
func (idx *Indexer) loadDocument(path, rel string) (*models.Document, error) {
	var text string
	if idx.extractor != nil {
		extracted, err := idx.extractor.Extract(path)
		if err != nil {
			return nil, err
		}
		text = extracted
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}

	text = Preprocess(text)
	if text == "" {
		return nil, nil
	}
	now := time.Now()
	return &models.Document{
		ID:        fileid.DocID(rel),
		Title:     filepath.ToSlash(rel),
		Content:   text,
		Metadata:  map[string]interface{}{"source_path": path},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// embedChunks embeds all chunks in configured batch sizes, storing each
// vector on its chunk. Any failure aborts the whole rebuild.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*models.Chunk) error {
	batchSize := idx.config.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Content
		}
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end-1, len(embeddings), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}
	}
	return nil
}

// persist replaces storage, the vector index, and the keyword index with the
// staged corpus, then writes the vector index to disk.
func (idx *Indexer) persist(ctx context.Context, docs []*models.Document, chunks []*models.Chunk) error {
	if err := idx.storage.ReplaceAll(ctx, docs, chunks); err != nil {
		return fmt.Errorf("replace stored documents: %w", err)
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		vectors[i] = ch.Embedding
	}
	if err := idx.vectorIndex.Replace(ctx, ids, vectors); err != nil {
		return fmt.Errorf("replace vector index: %w", err)
	}
	if err := idx.vectorIndex.Save(idx.config.Storage.VectorIndexPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	if err := idx.keywordIndex.Reset(ctx); err != nil {
		return fmt.Errorf("reset keyword index: %w", err)
	}
	for _, ch := range chunks {
		if err := idx.keywordIndex.Index(ctx, ch); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
	}
	return nil
}

// extensionAllowed reports whether ext is in the allowed list (case-insensitive).
// An empty list allows everything.
func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
