// Package indexer provides document chunking and the offline index build.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/markdown"
	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits documents into bounded chunks. Markdown header boundaries
// are respected first; sections that exceed the size bound are subdivided by
// the recursive splitter with overlap between adjacent sub-chunks.
type Chunker struct {
	chunkSize    int // maximum chunk length in runes
	chunkOverlap int // overlap carried between adjacent sub-chunks, in runes
}

// NewChunker creates a chunker with the given size and overlap (in runes).
// Overlap is clamped below size so splitting always makes progress.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits a document into chunks annotated with their source. Chunk IDs
// are derived from the document ID and position so rebuilding an unchanged
// corpus yields an identical chunk set.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	sections := markdown.Split(doc.Content)
	var chunks []*models.Chunk
	for _, section := range sections {
		for _, text := range c.split(section.Content) {
			chunks = append(chunks, &models.Chunk{
				ID:         fmt.Sprintf("%s_%d", doc.ID, len(chunks)),
				DocumentID: doc.ID,
				Content:    text,
				Source:     doc.Title,
				ChunkIndex: len(chunks),
			})
		}
	}
	return chunks
}

// separators is the boundary hierarchy for recursive splitting: paragraph,
// line, sentence, word. Windows of raw runes are the last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// split breaks text into pieces of at most chunkSize runes. Text already
// within the bound is returned as-is. Otherwise the text is divided at the
// coarsest natural boundary that produces more than one part and the parts
// are packed into chunks, each seeded with the tail of its predecessor.
func (c *Chunker) split(text string) []string {
	if len([]rune(text)) <= c.chunkSize {
		return []string{text}
	}
	for _, sep := range separators {
		parts := splitAfter(text, sep)
		if len(parts) > 1 {
			return c.pack(parts)
		}
	}
	return c.windows([]rune(text))
}

// pack greedily merges parts into chunks bounded by chunkSize, carrying the
// last chunkOverlap runes of each chunk into the next as a seed. A chunk is
// only emitted when it holds content beyond its seed, so no chunk consists
// purely of text repeated from its predecessor. Parts that alone exceed the
// bound are split recursively at the next finer boundary.
func (c *Chunker) pack(parts []string) []string {
	var chunks []string
	var current []rune
	seedLen := 0
	emit := func() {
		if len(current) <= seedLen {
			current, seedLen = nil, 0
			return
		}
		chunks = append(chunks, string(current))
		overlap := c.chunkOverlap
		if overlap > len(current) {
			overlap = len(current)
		}
		tail := make([]rune, overlap)
		copy(tail, current[len(current)-overlap:])
		current, seedLen = tail, overlap
	}
	for _, part := range parts {
		runes := []rune(part)
		if len(runes) > c.chunkSize {
			emit()
			current, seedLen = nil, 0
			chunks = append(chunks, c.split(part)...)
			continue
		}
		if len(current)+len(runes) > c.chunkSize {
			emit()
			if len(current)+len(runes) > c.chunkSize {
				// Even the seed plus this part overflows; give up the seed.
				current, seedLen = nil, 0
			}
		}
		current = append(current, runes...)
	}
	if len(current) > seedLen {
		chunks = append(chunks, string(current))
	}
	return chunks
}

// splitAfter splits text on sep keeping the separator attached to the
// preceding part, so rejoining the parts reproduces the input exactly.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// windows cuts runes into fixed-size windows with exactly chunkOverlap runes
// shared between adjacent windows.
func (c *Chunker) windows(runes []rune) []string {
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
