package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
loader:
  type: s3
  endpoint: localhost:9000
  bucket: docs
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Search.ChunkSize != 1000 || cfg.Search.ChunkOverlap != 200 {
		t.Errorf("chunk defaults: %+v", cfg.Search)
	}
	if cfg.Search.DefaultMaxResults != 5 || cfg.Search.DefaultThreshold != 0.7 {
		t.Errorf("search defaults: %+v", cfg.Search)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
}

func TestLoad_OverlapMustBeSmallerThanSize(t *testing.T) {
	path := writeConfig(t, `
loader:
  type: s3
  endpoint: localhost:9000
  bucket: docs
search:
  chunk_size: 100
  chunk_overlap: 100
`)
	if _, err := Load(path); err == nil {
		t.Error("chunk_overlap == chunk_size should be rejected at startup")
	}
}

func TestLoad_UnknownLoaderType(t *testing.T) {
	path := writeConfig(t, `
loader:
  type: ftp
`)
	if _, err := Load(path); err == nil {
		t.Error("unknown loader type should be rejected")
	}
}

func TestLoad_DirLoaderRequiresDir(t *testing.T) {
	path := writeConfig(t, `
loader:
  type: dir
`)
	if _, err := Load(path); err == nil {
		t.Error("dir loader without dir should be rejected")
	}
}

func TestLoad_ThresholdRange(t *testing.T) {
	path := writeConfig(t, `
loader:
  type: s3
  endpoint: localhost:9000
  bucket: docs
search:
  default_threshold: 1.5
`)
	if _, err := Load(path); err == nil {
		t.Error("threshold above 1 should be rejected")
	}
}

func TestLoad_RelativePathsExpandAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
loader:
  type: dir
  dir: ./docs
storage:
  index_dir: ./data/index
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(cfg.Loader.Dir) || filepath.Dir(cfg.Loader.Dir) != dir {
		t.Errorf("loader.dir not expanded against config dir: %s", cfg.Loader.Dir)
	}
	if !filepath.IsAbs(cfg.Storage.IndexDir) {
		t.Errorf("storage.index_dir not expanded: %s", cfg.Storage.IndexDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing config file should fail")
	}
}
