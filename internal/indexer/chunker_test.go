package indexer

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func testDoc(title, content string) *models.Document {
	return &models.Document{ID: "doc:test", Title: title, Content: content}
}

// words returns n space-separated copies of w.
func words(w string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = w
	}
	return strings.Join(parts, " ")
}

func TestChunk_HeaderBoundaries(t *testing.T) {
	content := "# Install\nRun the installer.\n\n# Network\nConfigure netplan.\n"
	chunks := NewChunker(1000, 100).Chunk(testDoc("guide.md", content))

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Content, "# Install") {
		t.Errorf("first chunk should start at the first header: %q", chunks[0].Content)
	}
	if !strings.HasPrefix(chunks[1].Content, "# Network") {
		t.Errorf("second chunk should start at the second header: %q", chunks[1].Content)
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, ch.ChunkIndex)
		}
		if ch.Source != "guide.md" {
			t.Errorf("chunk %d source = %q", i, ch.Source)
		}
	}
}

func TestChunk_TwoHeaderSectionsUnderLimit(t *testing.T) {
	content := "# A\n" + words("aa", 200) + "\n# B\n" + words("bb", 50) + "\n"
	chunks := NewChunker(1000, 100).Chunk(testDoc("intro.md", content))

	if len(chunks) != 2 {
		t.Fatalf("expected exactly 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Source != "intro.md" {
			t.Errorf("chunk %d source = %q, want intro.md", i, ch.Source)
		}
		if n := len([]rune(ch.Content)); n > 1000 {
			t.Errorf("chunk %d exceeds limit: %d runes", i, n)
		}
	}
}

func TestChunk_SizeBoundAndOverlap(t *testing.T) {
	const size, overlap = 100, 10
	content := words("documentation", 60)
	chunks := NewChunker(size, overlap).Chunk(testDoc("long.md", content))

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := len([]rune(ch.Content)); n > size {
			t.Errorf("chunk %d exceeds limit: %d runes", i, n)
		}
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		tail := string(prev[len(prev)-overlap:])
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("chunk %d does not start with the previous chunk's tail %q: %q",
				i, tail, chunks[i].Content)
		}
	}
}

func TestChunk_UnbrokenTextFallsBackToWindows(t *testing.T) {
	const size, overlap = 1000, 100
	content := strings.Repeat("x", 2500)
	chunks := NewChunker(size, overlap).Chunk(testDoc("blob.txt", content))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := len([]rune(ch.Content)); n > size {
			t.Errorf("window %d exceeds limit: %d runes", i, n)
		}
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		tail := string(prev[len(prev)-overlap:])
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("window %d missing %d-rune overlap", i, overlap)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	content := "# One\n" + words("alpha", 300) + "\n# Two\n" + words("beta", 300)
	doc := testDoc("repeat.md", content)
	c := NewChunker(500, 50)

	first := c.Chunk(doc)
	second := c.Chunk(doc)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Content != second[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	if chunks := NewChunker(1000, 100).Chunk(testDoc("empty.md", "")); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunk_IDsDerivedFromDocument(t *testing.T) {
	doc := testDoc("ids.md", "# A\nshort\n# B\nshort")
	chunks := NewChunker(1000, 100).Chunk(doc)
	for i, ch := range chunks {
		if ch.DocumentID != doc.ID {
			t.Errorf("chunk %d document ID = %q", i, ch.DocumentID)
		}
		if !strings.HasPrefix(ch.ID, doc.ID+"_") {
			t.Errorf("chunk %d ID = %q, want prefix %q", i, ch.ID, doc.ID+"_")
		}
	}
}

func TestChunk_MultibyteRunes(t *testing.T) {
	// Sizes are in runes, so multibyte text must not over-split.
	content := strings.Repeat("ドキュメント ", 40)
	chunks := NewChunker(50, 5).Chunk(testDoc("ja.md", content))
	for i, ch := range chunks {
		if n := len([]rune(ch.Content)); n > 50 {
			t.Errorf("chunk %d exceeds limit: %d runes", i, n)
		}
	}
}

func TestPreprocess(t *testing.T) {
	in := "# Title\r\n\r\n\r\nline one  \nline two\t\n"
	got := Preprocess(in)
	want := "# Title\n\nline one\nline two"
	if got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}
