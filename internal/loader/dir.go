package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
)

// DirLoader loads documents from a local directory tree. Paths relative to
// the root become document keys. Used for development and as the watcher's
// source.
type DirLoader struct {
	root       string
	extensions []string
}

// NewDirLoader creates a loader rooted at cfg.Dir.
func NewDirLoader(cfg *config.LoaderConfig) (*DirLoader, error) {
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	return &DirLoader{root: root, extensions: cfg.Extensions}, nil
}

// Root returns the absolute root directory.
func (l *DirLoader) Root() string {
	return l.root
}

// Load walks the root recursively and reads every regular file whose name
// matches the allowed extensions. Empty files are skipped.
func (l *DirLoader) Load(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !extensionAllowed(d.Name(), l.extensions) {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(content) == 0 {
			return nil
		}
		key, err := filepath.Rel(l.root, path)
		if err != nil {
			key = path
		}
		docs = append(docs, &models.Document{
			Key:     filepath.ToSlash(key),
			Content: string(content),
			Metadata: models.DocumentMetadata{
				Source:       path,
				Size:         info.Size(),
				LastModified: info.ModTime(),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}
	return docs, nil
}
