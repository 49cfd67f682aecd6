package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	err = idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result = %s, want a", results[0].ID)
	}
	if results[1].ID != "c" {
		t.Errorf("second result = %s, want c", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not ordered by score")
	}
}

func TestFlatIndex_Replace(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"old"}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Replace(ctx, []string{"n1", "n2"}, [][]float32{{0, 1}, {1, 0}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("size after replace = %d", idx.Size())
	}
	results, err := idx.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "n1" {
		t.Errorf("results = %+v", results)
	}
}

func TestFlatIndex_ReplaceBadBatchLeavesIndexUnchanged(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"keep"}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Replace(ctx, []string{"bad"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Fatal("expected dimension error")
	}
	if idx.Size() != 1 {
		t.Errorf("size after failed replace = %d", idx.Size())
	}
	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "keep" {
		t.Errorf("results = %+v", results)
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected add dimension error")
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected search dimension error")
	}
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "chunks.idx")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewFlatIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size = %d", loaded.Size())
	}
	results, err := loaded.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "y" {
		t.Errorf("results = %+v", results)
	}
}

func TestFlatIndex_LoadMissingFile(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	if err := idx.Load(filepath.Join(t.TempDir(), "absent.idx")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d", idx.Size())
	}
}

func TestFlatIndex_LoadDimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	path := filepath.Join(t.TempDir(), "chunks.idx")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	other, _ := NewFlatIndex(3)
	if err := other.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestFlatIndex_LoadCorruptHeader(t *testing.T) {
	// Count claims far more entries than the file could hold; Load must
	// reject it instead of preallocating for billions of entries.
	path := filepath.Join(t.TempDir(), "chunks.idx")
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(2))          // dimensions
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4000000000)) // count
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	idx, _ := NewFlatIndex(2)
	if err := idx.Load(path); err == nil {
		t.Error("expected error for impossible entry count")
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d", idx.Size())
	}
}

func TestFlatIndex_LoadCorruptIDLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.idx")
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(2))          // dimensions
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))          // count
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3000000000)) // id length
	buf.Write(make([]byte, 16))
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	idx, _ := NewFlatIndex(2)
	if err := idx.Load(path); err == nil {
		t.Error("expected error for oversized id length")
	}
	if idx.Size() != 0 {
		t.Errorf("size = %d", idx.Size())
	}
}

func TestFlatIndex_EmptySearch(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}
