package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/hyperjump/kensaku/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. Each
// word maps to a fixed pseudo-random vector and a text embeds as the
// normalized sum of its word vectors, so identical text always embeds
// identically and texts sharing words land closer together.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding derived from the text's words.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}
	for _, word := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		seed := float64(h.Sum32()%100000) + 1
		for i := 0; i < e.dimensions; i++ {
			emb[i] += float32(math.Sin(seed * float64(i+1)))
		}
	}
	// Unit length so L2 distances stay in a narrow, comparable range.
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
