// Package chunker splits documents into overlapping text windows for embedding.
package chunker

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperjump/kensaku/internal/models"
)

// Splitter produces overlapping rune-based chunks. Windows are size runes
// long and consecutive windows share overlap runes. overlap < size is a
// config-time precondition (config.Validate), not checked here per call.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given window size and overlap, in runes.
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{size: size, overlap: overlap}
}

// Split chunks every document and propagates the owning document's metadata
// onto each chunk. Chunks never span two documents. Documents with empty
// content produce no chunks.
func (s *Splitter) Split(docs []*models.Document) []*models.Chunk {
	var chunks []*models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.SplitDocument(doc)...)
	}
	return chunks
}

// SplitDocument splits a single document into overlapping windows.
func (s *Splitter) SplitDocument(doc *models.Document) []*models.Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}
	step := s.size - s.overlap
	if step <= 0 {
		step = 1
	}
	var chunks []*models.Chunk
	chunkIndex := 0
	for i := 0; i < len(runes); i += step {
		end := i + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, &models.Chunk{
			ID:          fmt.Sprintf("%s_%s", doc.Key, uuid.New().String()[:8]),
			DocumentKey: doc.Key,
			Content:     string(runes[i:end]),
			ChunkIndex:  chunkIndex,
			Metadata:    doc.Metadata,
		})
		chunkIndex++
		if end >= len(runes) {
			break
		}
	}
	return chunks
}
