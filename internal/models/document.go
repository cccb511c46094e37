// Package models defines core data structures for documents, chunks, and search.
package models

import "time"

// DocumentMetadata carries the loader-provided attributes of a document.
// It is propagated unchanged from Document through Chunk to SearchResult.
type DocumentMetadata struct {
	Source       string    `json:"source"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Document is a loaded document. Immutable once fetched; lives for one ingest pass.
type Document struct {
	Key      string           `json:"key"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// Chunk is a bounded text window derived from a document for embedding.
// Chunks are not persisted on their own; they live inside the index.
type Chunk struct {
	ID          string           `json:"id"`
	DocumentKey string           `json:"document_key"`
	Content     string           `json:"content"`
	ChunkIndex  int              `json:"chunk_index"`
	Metadata    DocumentMetadata `json:"metadata"`
	Embedding   []float32        `json:"-"`
}
