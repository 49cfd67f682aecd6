package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/viant/vec/search"
)

// FlatIndex is an exhaustive-scan similarity index. Every query scores all
// stored vectors with SIMD-accelerated cosine similarity; for a documentation
// corpus of a few thousand chunks this is well under a millisecond.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	magnitudes []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates a flat index for vectors of the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Add appends vectors under the given IDs. Magnitudes are precomputed once
// so searches only pay for the dot products.
func (f *FlatIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), f.dimensions)
		}
		vec := make([]float32, f.dimensions)
		copy(vec, vectors[i])
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
		f.magnitudes = append(f.magnitudes, search.Float32s(vec).Magnitude())
	}
	return nil
}

// Replace swaps the index contents for the given entries. The new contents
// are validated and staged before the swap, so a bad batch leaves the index
// unchanged.
func (f *FlatIndex) Replace(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	newIDs := make([]string, len(ids))
	newVectors := make([][]float32, len(ids))
	newMagnitudes := make([]float32, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), f.dimensions)
		}
		vec := make([]float32, f.dimensions)
		copy(vec, vectors[i])
		newIDs[i] = id
		newVectors[i] = vec
		newMagnitudes[i] = search.Float32s(vec).Magnitude()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = newIDs
	f.vectors = newVectors
	f.magnitudes = newMagnitudes
	return nil
}

// Search returns up to k results ordered by descending cosine similarity.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	q := search.Float32s(query)
	qMag := q.Magnitude()
	results := make([]*Result, len(f.ids))
	for i, vec := range f.vectors {
		dist := q.CosineDistanceWithMagnitude(vec, qMag, f.magnitudes[i])
		score := 1 - float64(dist)
		results[i] = &Result{ID: f.ids[i], Score: math.Max(0, math.Min(1, score))}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Save writes the index to path, creating parent directories as needed.
// Layout: dimensions (u32), count (u32), then per entry: id length (u32),
// id bytes, vector (dimensions * 4 bytes), all little-endian.
func (f *FlatIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()
	if err := binary.Write(file, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		idBytes := []byte(id)
		if err := binary.Write(file, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id length: %w", err)
		}
		if _, err := file.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := file.Write(float32sToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents with the file at path. A missing file is
// not an error; the index is simply left empty. Dimensions must match.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}

	var dim, n uint32
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, f.dimensions)
	}
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	// Every entry takes at least the id-length word plus the vector, so a
	// count the file cannot possibly hold means corruption. Catch it here
	// rather than letting the preallocations below balloon.
	minEntry := int64(4 + f.dimensions*4)
	if int64(n) > (info.Size()-8)/minEntry {
		return fmt.Errorf("index file corrupt: count %d exceeds file size %d", n, info.Size())
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	magnitudes := make([]float32, 0, n)
	vecBuf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(file, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id length: %w", err)
		}
		if int64(idLen) > info.Size() {
			return fmt.Errorf("index file corrupt: id length %d exceeds file size %d", idLen, info.Size())
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(file, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(file, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		vec := bytesToFloat32s(vecBuf)
		ids = append(ids, string(idBytes))
		vectors = append(vectors, vec)
		magnitudes = append(magnitudes, search.Float32s(vec).Magnitude())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	f.magnitudes = magnitudes
	return nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}

func float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
