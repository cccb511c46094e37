// Package vector provides a flat L2 vector index with binary persistence.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Hit is a single nearest-neighbor result. Distance is squared-free L2
// distance; smaller means closer.
type Hit struct {
	ID       string
	Distance float64
}

// FlatIndex is an in-memory brute-force L2 index. Mutations take the write
// lock; Search takes the read lock, so queries may run concurrently.
type FlatIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs.
func (f *FlatIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
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
	}
	return nil
}

// Search returns up to k hits ordered by ascending L2 distance (closest
// first); fewer than k when the index holds fewer vectors.
func (f *FlatIndex) Search(query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	hits := make([]*Hit, len(f.ids))
	for i, vec := range f.vectors {
		hits[i] = &Hit{ID: f.ids[i], Distance: L2Distance(query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Clone returns a copy sharing the (immutable) vector payloads but with
// independent slices, so additions to the clone do not disturb the original.
func (f *FlatIndex) Clone() *FlatIndex {
	f.mu.RLock()
	defer f.mu.RUnlock()
	clone := &FlatIndex{dimensions: f.dimensions}
	clone.ids = append([]string(nil), f.ids...)
	clone.vectors = append([][]float32(nil), f.vectors...)
	return clone
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Save persists the index to path atomically (write to temp, then rename),
// so a concurrent Load never observes a partial file. Format: dimensions (4),
// n (4), then per vector: idLen (4), id bytes, vector (dimensions*4 bytes).
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := f.writeTo(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func (f *FlatIndex) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		idBytes := []byte(id)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := w.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index at path into a new FlatIndex with the expected
// dimension. A missing file is reported as an error satisfying
// errors.Is(err, os.ErrNotExist); callers treat that as "no index yet".
func Load(path string, dimensions int) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("index file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != dimensions {
		return nil, fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	idx := &FlatIndex{dimensions: dimensions}
	idx.ids = make([]string, 0, n)
	idx.vectors = make([][]float32, 0, n)
	buf := make([]byte, dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return nil, fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		idx.ids = append(idx.ids, string(idBytes))
		idx.vectors = append(idx.vectors, bytesToFloat32Slice(buf))
	}
	return idx, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
