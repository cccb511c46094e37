package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	chunks, err := store.NewChunkStore(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = chunks.Close() })
	return NewEngine(embedding.NewMockEmbedder(32), chunks, dir)
}

func chunk(id, key, content string) *models.Chunk {
	return &models.Chunk{ID: id, DocumentKey: key, Content: content}
}

func TestEngine_BuildSearch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ix, err := e.Build(ctx, []*models.Chunk{
		chunk("a_1", "a.md", "postgres database replication"),
		chunk("b_1", "b.md", "pasta recipes with tomato"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ix.Size() != 2 {
		t.Fatalf("Size=%d", ix.Size())
	}

	hits, err := e.Search(ctx, ix, "postgres replication", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].Chunk.DocumentKey != "a.md" {
		t.Errorf("top hit should be a.md, got %s", hits[0].Chunk.DocumentKey)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Error("hits should be ordered by ascending distance")
	}
}

func TestEngine_MergePreservesBase(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	base, err := e.Build(ctx, []*models.Chunk{chunk("a_1", "a.md", "alpha content")})
	if err != nil {
		t.Fatal(err)
	}
	merged, err := e.Merge(ctx, base, []*models.Chunk{chunk("b_1", "b.md", "beta content")})
	if err != nil {
		t.Fatal(err)
	}
	if base.Size() != 1 {
		t.Errorf("base mutated: size=%d", base.Size())
	}
	if merged.Size() != 2 {
		t.Errorf("merged size=%d", merged.Size())
	}

	hits, err := e.Search(ctx, merged, "beta content", 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Chunk.DocumentKey != "b.md" {
		t.Errorf("merged chunk not searchable: top hit %s", hits[0].Chunk.DocumentKey)
	}
}

func TestEngine_MergeEmptyIsNoop(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	base, _ := e.Build(ctx, []*models.Chunk{chunk("a_1", "a.md", "alpha")})
	merged, err := e.Merge(ctx, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	if merged != base {
		t.Error("merging nothing should return the base index")
	}
}

func TestEngine_SaveLoadRoundtrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ix, _ := e.Build(ctx, []*models.Chunk{
		chunk("a_1", "a.md", "stored content one"),
		chunk("b_1", "b.md", "stored content two"),
	})
	if err := e.Save(ctx, ix); err != nil {
		t.Fatal(err)
	}

	loaded, err := e.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size=%d", loaded.Size())
	}
	hits, err := e.Search(ctx, loaded, "stored content one", 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Chunk.Content != "stored content one" {
		t.Errorf("payload lost after reload: %q", hits[0].Chunk.Content)
	}
}

func TestEngine_LoadMissing(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing index should report os.ErrNotExist, got %v", err)
	}
}

func TestIndex_NilSize(t *testing.T) {
	var ix *Index
	if ix.Size() != 0 {
		t.Error("nil index should report size 0")
	}
}
