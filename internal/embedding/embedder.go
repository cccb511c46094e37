// Package embedding provides text embedding via an external provider, with caching.
package embedding

import (
	"context"
	"errors"
)

// ErrProvider marks failures of the upstream embedding provider (unreachable
// service or malformed response). Not retried at this layer; retry policy
// belongs to the caller.
var ErrProvider = errors.New("embedding provider error")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
