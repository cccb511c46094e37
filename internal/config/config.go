// Package config provides configuration loading and structs for the Kensaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Loader    LoaderConfig    `yaml:"loader"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds locations for the persisted index and fingerprint map.
type StorageConfig struct {
	IndexDir        string `yaml:"index_dir"`
	FingerprintPath string `yaml:"fingerprint_path"`
}

// LoaderConfig holds document source settings. Type is "s3" or "dir".
type LoaderConfig struct {
	Type       string   `yaml:"type"`
	Endpoint   string   `yaml:"endpoint"`
	Bucket     string   `yaml:"bucket"`
	Prefix     string   `yaml:"prefix"`
	AccessKey  string   `yaml:"access_key"`
	SecretKey  string   `yaml:"secret_key"`
	UseSSL     bool     `yaml:"use_ssl"`
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// EmbeddingConfig holds embedding provider settings. Provider is "openai" or "mock".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds chunking and query settings.
type SearchConfig struct {
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	DefaultMaxResults int     `yaml:"default_max_results"`
	DefaultThreshold  float64 `yaml:"default_threshold"`
}

// WatchConfig controls the directory watcher (directory loader only).
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the config file at path, applies defaults, expands
// storage and loader paths, and validates. Returns an error if the file
// cannot be read or parsed, or if validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.FingerprintPath = expandPath(cfg.Storage.FingerprintPath, configDir)
	if cfg.Loader.Dir != "" {
		cfg.Loader.Dir = expandPath(cfg.Loader.Dir, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints that must hold at startup. Chunk overlap must
// be smaller than chunk size; violating it is a configuration error, not a
// runtime fault.
func (c *Config) Validate() error {
	if c.Search.ChunkSize <= 0 {
		return fmt.Errorf("search.chunk_size must be positive, got %d", c.Search.ChunkSize)
	}
	if c.Search.ChunkOverlap < 0 {
		return fmt.Errorf("search.chunk_overlap must not be negative, got %d", c.Search.ChunkOverlap)
	}
	if c.Search.ChunkOverlap >= c.Search.ChunkSize {
		return fmt.Errorf("search.chunk_overlap (%d) must be smaller than search.chunk_size (%d)",
			c.Search.ChunkOverlap, c.Search.ChunkSize)
	}
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be in [0,1], got %g", c.Search.DefaultThreshold)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Loader.Type {
	case "s3":
		if c.Loader.Endpoint == "" {
			return fmt.Errorf("loader.endpoint is required for the s3 loader")
		}
		if c.Loader.Bucket == "" {
			return fmt.Errorf("loader.bucket is required for the s3 loader")
		}
	case "dir":
		if c.Loader.Dir == "" {
			return fmt.Errorf("loader.dir is required for the dir loader")
		}
	default:
		return fmt.Errorf("loader.type must be \"s3\" or \"dir\", got %q", c.Loader.Type)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
