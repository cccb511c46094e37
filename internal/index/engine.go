// Package index adapts the vector index, embedder, and chunk store into the
// build/merge/search/persist operations the ingest and query pipelines use.
package index

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/hyperjump/kensaku/internal/vector"
)

const vectorsFileName = "vectors.bin"

// Index is a searchable snapshot: vectors plus the chunk payload for each
// vector ID. Once built it is only read; Merge returns a new Index rather
// than mutating, so concurrent queries always see a consistent snapshot.
type Index struct {
	flat   *vector.FlatIndex
	chunks map[string]*models.Chunk
}

// Size returns the number of vector records in the index.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return ix.flat.Size()
}

// Hit is a raw search result: the matched chunk and its L2 distance.
type Hit struct {
	Chunk    *models.Chunk
	Distance float64
}

// Engine builds, extends, persists, and queries indexes. Embeddings are
// computed internally through the configured embedder.
type Engine struct {
	embedder embedding.Embedder
	chunks   *store.ChunkStore
	dir      string
}

// NewEngine creates an engine persisting under dir, with chunk payloads in chunkStore.
func NewEngine(embedder embedding.Embedder, chunkStore *store.ChunkStore, dir string) *Engine {
	return &Engine{embedder: embedder, chunks: chunkStore, dir: dir}
}

func (e *Engine) vectorsPath() string {
	return filepath.Join(e.dir, vectorsFileName)
}

// Build creates a new index from chunks, embedding every chunk.
func (e *Engine) Build(ctx context.Context, chunks []*models.Chunk) (*Index, error) {
	flat, err := vector.NewFlatIndex(e.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	ix := &Index{flat: flat, chunks: make(map[string]*models.Chunk, len(chunks))}
	if err := e.embedAndAdd(ctx, ix, chunks); err != nil {
		return nil, err
	}
	return ix, nil
}

// Merge embeds chunks and inserts them into a copy of base, leaving base and
// its existing vectors untouched. Safe to call with no chunks (returns base).
// Vectors of a changed document's previous content are not retired here;
// they persist until the next forced rebuild.
func (e *Engine) Merge(ctx context.Context, base *Index, chunks []*models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return base, nil
	}
	merged := &Index{
		flat:   base.flat.Clone(),
		chunks: make(map[string]*models.Chunk, len(base.chunks)+len(chunks)),
	}
	for id, ch := range base.chunks {
		merged.chunks[id] = ch
	}
	if err := e.embedAndAdd(ctx, merged, chunks); err != nil {
		return nil, err
	}
	return merged, nil
}

func (e *Engine) embedAndAdd(ctx context.Context, ix *Index, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ch.Embedding = embeddings[i]
		ids[i] = ch.ID
		ix.chunks[ch.ID] = ch
	}
	if err := ix.flat.Add(ids, embeddings); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	return nil
}

// Search embeds the query and returns up to k hits ordered by ascending
// distance. Hits whose payload is missing from the index are dropped.
func (e *Engine) Search(ctx context.Context, ix *Index, query string, k int) ([]*Hit, error) {
	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	raw, err := ix.flat.Search(queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	hits := make([]*Hit, 0, len(raw))
	for _, r := range raw {
		ch, ok := ix.chunks[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, &Hit{Chunk: ch, Distance: r.Distance})
	}
	return hits, nil
}

// Save persists the index: the vectors file first (atomic rename), then the
// chunk payloads in one transaction. Either step failing leaves the previous
// on-disk index loadable.
func (e *Engine) Save(ctx context.Context, ix *Index) error {
	if err := ix.flat.Save(e.vectorsPath()); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	payloads := make([]*models.Chunk, 0, len(ix.chunks))
	for _, ch := range ix.chunks {
		payloads = append(payloads, ch)
	}
	if err := e.chunks.ReplaceAll(ctx, payloads); err != nil {
		return fmt.Errorf("save chunk payloads: %w", err)
	}
	return nil
}

// Load reads the persisted index. When no index has been saved yet the
// returned error satisfies errors.Is(err, os.ErrNotExist); callers treat
// that as "no index yet", not a fault.
func (e *Engine) Load(ctx context.Context) (*Index, error) {
	flat, err := vector.Load(e.vectorsPath(), e.embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	payloads, err := e.chunks.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunk payloads: %w", err)
	}
	ix := &Index{flat: flat, chunks: make(map[string]*models.Chunk, len(payloads))}
	for _, ch := range payloads {
		ix.chunks[ch.ID] = ch
	}
	return ix, nil
}
