// Package store provides durable storage for the fingerprint map and chunk
// payloads, plus disk usage helpers.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FingerprintFile persists the document-key -> content-digest map. The map
// is the commit record for an ingest pass: it is written only after the
// index has been durably saved.
type FingerprintFile struct {
	path   string
	logger *zap.Logger
}

// NewFingerprintFile creates a fingerprint store at path. logger may be nil.
func NewFingerprintFile(path string, logger *zap.Logger) *FingerprintFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FingerprintFile{path: path, logger: logger}
}

// Read returns the persisted map. Best effort: a missing file yields an
// empty map, and a corrupt file yields an empty map with a warning, so an
// ingest pass proceeds as a first run rather than failing.
func (f *FingerprintFile) Read() map[string]string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("fingerprint map unreadable, starting empty", zap.String("path", f.path), zap.Error(err))
		}
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		f.logger.Warn("fingerprint map corrupt, starting empty", zap.String("path", f.path), zap.Error(err))
		return map[string]string{}
	}
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// Write persists the map atomically (write to temp, then rename). Unlike
// Read, a write failure is a hard error the caller must surface: losing the
// commit record would desynchronize the map from the index.
func (f *FingerprintFile) Write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create fingerprint dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint map: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp fingerprint file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write fingerprint map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp fingerprint file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename fingerprint file: %w", err)
	}
	return nil
}

// ModTime returns the last modification time of the persisted map, or false
// if it has never been written.
func (f *FingerprintFile) ModTime() (time.Time, bool) {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
