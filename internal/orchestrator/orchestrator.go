// Package orchestrator coordinates the ingest pipeline (fingerprint,
// classify, chunk, embed, index, persist) and the query pipeline
// (embed, search, normalize, filter).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/chunker"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/fingerprint"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/loader"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// ErrNotReady is returned by Search before any index has been built or
// loaded. Callers should tell the user to process documents first.
var ErrNotReady = errors.New("no index available; process documents first")

// Orchestrator owns the live index and drives ingest, query, stats, and
// background rebuilds. Construct one per deployment and share it; state is
// instance-local, not global.
type Orchestrator struct {
	loader       loader.Loader
	splitter     *chunker.Splitter
	engine       *index.Engine
	fingerprints *store.FingerprintFile
	indexDir     string
	logger       *zap.Logger

	// processMu serializes writers: one ingest pass mutates the persisted
	// index and fingerprint map at a time.
	processMu sync.Mutex

	// mu guards the live index pointer and rebuild status. Queries take the
	// read lock only to fetch the current snapshot; the search itself runs
	// lock-free against that snapshot.
	mu      sync.RWMutex
	index   *index.Index
	rebuild *models.RebuildStatus
}

// New creates an orchestrator. logger may be nil.
func New(
	ld loader.Loader,
	engine *index.Engine,
	fingerprints *store.FingerprintFile,
	cfg *config.Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		loader:       ld,
		splitter:     chunker.NewSplitter(cfg.Search.ChunkSize, cfg.Search.ChunkOverlap),
		engine:       engine,
		fingerprints: fingerprints,
		indexDir:     cfg.Storage.IndexDir,
		logger:       logger,
	}
}

// LoadIndex loads the persisted index at startup. An absent index is not an
// error; the orchestrator starts empty and the first Process builds it.
func (o *Orchestrator) LoadIndex(ctx context.Context) error {
	ix, err := o.engine.Load(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			o.logger.Info("no persisted index found, starting empty")
			return nil
		}
		return fmt.Errorf("load index: %w", err)
	}
	o.mu.Lock()
	o.index = ix
	o.mu.Unlock()
	o.logger.Info("index loaded", zap.Int("vectors", ix.Size()))
	return nil
}

func (o *Orchestrator) currentIndex() *index.Index {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.index
}

func (o *Orchestrator) setIndex(ix *index.Index) {
	o.mu.Lock()
	o.index = ix
	o.mu.Unlock()
}

// Process runs one ingest pass. It never returns an error: every fault is
// converted into a ProcessResult with Success=false, so callers always get a
// structured outcome. Concurrent calls are serialized.
func (o *Orchestrator) Process(ctx context.Context, force bool) *models.ProcessResult {
	o.processMu.Lock()
	defer o.processMu.Unlock()

	start := time.Now()
	finish := func(success bool, msg string) *models.ProcessResult {
		return &models.ProcessResult{
			Success:       success,
			Message:       msg,
			Stats:         o.Stats(ctx),
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	docs, err := o.loader.Load(ctx)
	if err != nil {
		o.logger.Error("document load failed", zap.Error(err))
		return finish(false, fmt.Sprintf("failed to load documents: %v", err))
	}
	if len(docs) == 0 {
		return finish(false, "no documents found to process")
	}

	previous := o.fingerprints.Read()
	cs := fingerprint.Classify(docs, previous, force)
	o.logger.Info("documents classified",
		zap.Int("to_process", len(cs.ToProcess)),
		zap.Int("unchanged", len(cs.Unchanged)),
		zap.Bool("force", force),
	)

	if len(cs.ToProcess) == 0 && !force {
		// Entries for documents that disappeared from the loader are kept;
		// their vectors stay in the index until the next forced rebuild.
		return finish(true, "no changes detected; index is up to date")
	}

	newChunks := o.splitter.Split(cs.ToProcess)
	o.logger.Debug("documents chunked", zap.Int("chunks", len(newChunks)))

	current := o.currentIndex()
	var next *index.Index
	if current == nil || force {
		// First build and forced rebuild embed every document, not just the
		// changed ones; the new index wholesale-replaces the old.
		allChunks := o.splitter.Split(docs)
		next, err = o.engine.Build(ctx, allChunks)
		if err != nil {
			o.logger.Error("index build failed", zap.Error(err))
			return finish(false, fmt.Sprintf("failed to build index: %v", err))
		}
	} else {
		next, err = o.engine.Merge(ctx, current, newChunks)
		if err != nil {
			o.logger.Error("index merge failed", zap.Error(err))
			return finish(false, fmt.Sprintf("failed to merge index: %v", err))
		}
	}

	// The index must be durable before the fingerprint map is updated: the
	// map is the commit record, so a crash between the two steps never
	// claims a document is indexed when it is not.
	if err := o.engine.Save(ctx, next); err != nil {
		o.logger.Error("index save failed", zap.Error(err))
		return finish(false, fmt.Sprintf("failed to save index: %v", err))
	}
	if err := o.fingerprints.Write(cs.Current); err != nil {
		o.logger.Error("fingerprint write failed", zap.Error(err))
		return finish(false, fmt.Sprintf("failed to save fingerprint map: %v", err))
	}

	o.setIndex(next)
	return finish(true, fmt.Sprintf("successfully processed %d documents and created %d chunks",
		len(cs.ToProcess), len(newChunks)))
}

// Search embeds the query, runs nearest-neighbor search, converts distances
// to similarity scores, and drops results below threshold. Results keep the
// index order, which is non-increasing similarity. Returns ErrNotReady when
// no index exists; any other failure is wrapped so callers can distinguish
// the two.
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int, threshold float64) ([]*models.SearchResult, error) {
	current := o.currentIndex()
	if current == nil {
		return nil, ErrNotReady
	}
	o.logger.Debug("search", zap.String("query", utils.Truncate(query, 80)),
		zap.Int("max_results", maxResults), zap.Float64("threshold", threshold))

	hits, err := o.engine.Search(ctx, current, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		score := vector.Similarity(hit.Distance)
		if score < threshold {
			continue
		}
		results = append(results, &models.SearchResult{
			Content:     hit.Chunk.Content,
			DocumentKey: hit.Chunk.DocumentKey,
			Metadata:    hit.Chunk.Metadata,
			Score:       score,
		})
	}
	return results, nil
}

// Stats reports the persisted state: document count from the fingerprint
// map, vector count from the live index, last update from the map file's
// mtime, and index size on disk (best effort, absent on I/O error).
func (o *Orchestrator) Stats(ctx context.Context) *models.Stats {
	stats := &models.Stats{
		TotalDocuments: len(o.fingerprints.Read()),
		TotalChunks:    o.currentIndex().Size(),
	}
	if mtime, ok := o.fingerprints.ModTime(); ok {
		stats.LastUpdate = &mtime
	}
	if bytes, err := store.DiskUsageBytes(o.indexDir); err == nil {
		stats.IndexSizeBytes = &bytes
	}
	o.mu.RLock()
	if o.rebuild != nil {
		st := *o.rebuild
		stats.Rebuild = &st
	}
	o.mu.RUnlock()
	return stats
}

// Rebuild starts a forced rebuild on a background goroutine and returns
// immediately. Returns false when a rebuild is already running. The outcome
// is recorded as a typed status observable through Stats, not just a log line.
func (o *Orchestrator) Rebuild() bool {
	o.mu.Lock()
	if o.rebuild != nil && o.rebuild.State == models.RebuildRunning {
		o.mu.Unlock()
		return false
	}
	o.rebuild = &models.RebuildStatus{State: models.RebuildRunning, StartedAt: time.Now()}
	o.mu.Unlock()

	go func() {
		// Detached from the request context: the rebuild outlives the
		// request that accepted it.
		result := o.Process(context.Background(), true)
		finished := time.Now()
		o.mu.Lock()
		o.rebuild.FinishedAt = &finished
		o.rebuild.Message = result.Message
		if result.Success {
			o.rebuild.State = models.RebuildSucceeded
		} else {
			o.rebuild.State = models.RebuildFailed
		}
		o.mu.Unlock()
		o.logger.Info("background rebuild finished",
			zap.Bool("success", result.Success), zap.String("message", result.Message))
	}()
	return true
}
