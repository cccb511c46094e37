// Package watcher triggers ingest passes when files under a directory change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a directory tree and invokes a single callback after file
// activity settles. Ingest works on the whole document set, so the callback
// runs one pass per burst of changes rather than once per file.
type Watcher struct {
	root       string
	extensions []string
	onChange   func()
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over root. extensions filter which files
// trigger a pass (empty = all). logger may be nil.
func NewWatcher(root string, extensions []string, onChange func(), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		root:       root,
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.Stop()
		return err
	}
	w.logger.Debug("watcher started", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		// New subdirectories must be watched too; their contents arrive as
		// separate events only once the directory is registered.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addTree(ev.Name)
			w.schedule()
			return
		}
		if w.matchExtension(ev.Name) {
			w.schedule()
		}
	case ev.Op.Has(fsnotify.Write), ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.matchExtension(ev.Name) {
			w.schedule()
		}
	}
}

// schedule arms the debounce timer, resetting it if already armed, so one
// ingest pass covers a whole burst of file events.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Debug("watcher triggering ingest pass")
		if w.onChange != nil {
			w.onChange()
		}
	})
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range w.extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	w.mu.Lock()
	fsw := w.watcher
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.started && w.watcher != nil {
		_ = w.watcher.Close()
		w.watcher = nil
		w.started = false
	}
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
