package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/loader"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/orchestrator"
	"github.com/hyperjump/kensaku/internal/store"
)

func newTestServer(t *testing.T, docs map[string]string) *Server {
	t.Helper()
	dir := t.TempDir()
	docsDir := filepath.Join(dir, "docs")
	writeDocs(t, docsDir, docs)

	cfg := &config.Config{
		Loader: config.LoaderConfig{Type: "dir", Dir: docsDir},
		Storage: config.StorageConfig{
			IndexDir:        filepath.Join(dir, "index"),
			FingerprintPath: filepath.Join(dir, "fingerprints.json"),
		},
		Search: config.SearchConfig{
			ChunkSize:         200,
			ChunkOverlap:      20,
			DefaultMaxResults: 5,
			DefaultThreshold:  0.0,
		},
	}
	ld, err := loader.NewDirLoader(&cfg.Loader)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := store.NewChunkStore(filepath.Join(cfg.Storage.IndexDir, "chunks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = chunks.Close() })
	engine := index.NewEngine(embedding.NewMockEmbedder(32), chunks, cfg.Storage.IndexDir)
	fingerprints := store.NewFingerprintFile(cfg.Storage.FingerprintPath, nil)
	orch := orchestrator.New(ld, engine, fingerprints, cfg, nil)
	return NewServer(orch, cfg, zap.NewNop())
}

func writeDocs(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleSearch_BeforeProcess(t *testing.T) {
	srv := newTestServer(t, map[string]string{"a.md": "alpha"})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/v1/search",
		models.SearchRequest{Query: "alpha"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("search without an index should be 400, got %d", rec.Code)
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d", rec.Code)
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/v1/search",
		models.SearchRequest{Query: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query should be 400, got %d", rec.Code)
	}
}

func TestProcessThenSearch(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"db.md":   "postgres database replication and failover",
		"food.md": "pasta recipes with tomato and basil",
	})
	router := srv.Router()

	rec := doRequest(t, router, http.MethodPost, "/api/v1/process", models.ProcessRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("process status=%d body=%s", rec.Code, rec.Body.String())
	}
	var pr models.ProcessResult
	if err := json.Unmarshal(rec.Body.Bytes(), &pr); err != nil {
		t.Fatal(err)
	}
	if !pr.Success {
		t.Fatalf("process failed: %s", pr.Message)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/v1/search",
		models.SearchRequest{Query: "postgres database replication"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status=%d body=%s", rec.Code, rec.Body.String())
	}
	var sr models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sr); err != nil {
		t.Fatal(err)
	}
	if sr.Query != "postgres database replication" {
		t.Errorf("query echoed wrong: %q", sr.Query)
	}
	if sr.TotalResults == 0 || len(sr.Results) != sr.TotalResults {
		t.Fatalf("TotalResults=%d Results=%d", sr.TotalResults, len(sr.Results))
	}
	if sr.Results[0].DocumentKey != "db.md" {
		t.Errorf("top result=%s", sr.Results[0].DocumentKey)
	}
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t, map[string]string{"a.md": "alpha content"})
	router := srv.Router()
	_ = doRequest(t, router, http.MethodPost, "/api/v1/process", models.ProcessRequest{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var stats models.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 1 || stats.TotalChunks == 0 {
		t.Errorf("stats=%+v", stats)
	}
}

func TestHandleRebuild(t *testing.T) {
	srv := newTestServer(t, map[string]string{"a.md": "alpha content"})
	rec := doRequest(t, srv.Router(), http.MethodPost, "/api/v1/rebuild", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("rebuild should return 202, got %d", rec.Code)
	}
}
