// Package loader fetches documents from their source for an ingest pass.
package loader

import (
	"context"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// Loader fetches the full current document set. Any error is an ingest
// failure for the whole pass, never a partial success.
type Loader interface {
	Load(ctx context.Context) ([]*models.Document, error)
}

func extensionAllowed(name string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range allowed {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
