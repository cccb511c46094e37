// Package main is the Kensaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/loader"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/orchestrator"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kensaku server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "process":
		runProcess()
	case "rebuild":
		runRebuild()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	orch := components.Orchestrator
	if err := orch.LoadIndex(context.Background()); err != nil {
		logger.Fatal("Failed to load index", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *watcher.Watcher
	if cfg.Watch.Enabled {
		dirLoader, ok := components.Loader.(*loader.DirLoader)
		if !ok {
			logger.Fatal("watch.enabled requires the dir loader")
		}
		watch = watcher.NewWatcher(dirLoader.Root(), cfg.Loader.Extensions, func() {
			result := orch.Process(context.Background(), false)
			if !result.Success {
				logger.Warn("watch-triggered ingest failed", zap.String("message", result.Message))
			}
		}, logger)
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv := server.NewServer(orch, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	maxResults := fs.Int("limit", 0, "maximum number of results (0 = server default)")
	threshold := fs.Float64("threshold", -1, "minimum similarity score in [0,1] (-1 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensaku search [flags] <query>")
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fmt.Println("Usage: kensaku search [flags] <query>")
		os.Exit(1)
	}

	req := &models.SearchRequest{Query: queryStr, MaxResults: *maxResults}
	if *threshold >= 0 {
		t := *threshold
		req.Threshold = &t
	}
	response, err := searchViaHTTP(*serverURL, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("%d result(s) for %q (%.3fs)\n", response.TotalResults, response.Query, response.ExecutionTime)
		for i, res := range response.Results {
			fmt.Printf("\n%d. %s (score %.3f)\n", i+1, res.DocumentKey, res.Score)
			fmt.Printf("   %s\n", utils.Truncate(strings.ReplaceAll(res.Content, "\n", " "), 200))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	force := fs.Bool("force", false, "re-embed and re-index every document")
	_ = fs.Parse(os.Args[2:])

	result, err := processViaHTTP(*serverURL, &models.ProcessRequest{ForceUpdate: *force})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		fmt.Fprintf(os.Stderr, "Process failed: %s\n", result.Message)
		os.Exit(1)
	}
	fmt.Printf("%s (%.3fs)\n", result.Message, result.ExecutionTime)
	if result.Stats != nil {
		fmt.Printf("documents: %d  chunks: %d\n", result.Stats.TotalDocuments, result.Stats.TotalChunks)
	}
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Post(*serverURL+"/api/v1/rebuild", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Println("Rebuild started; track progress with: kensaku stats")
	case http.StatusConflict:
		fmt.Println("A rebuild is already running")
	default:
		fmt.Fprintf(os.Stderr, "Rebuild failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	stats, err := statsViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:        %d\n", stats.TotalDocuments)
		fmt.Printf("chunks:           %d\n", stats.TotalChunks)
		if stats.LastUpdate != nil {
			fmt.Printf("last_update:      %s\n", stats.LastUpdate.Format(time.RFC3339))
		}
		if stats.IndexSizeBytes != nil {
			fmt.Printf("index_size_bytes: %d\n", *stats.IndexSizeBytes)
		}
		if stats.Rebuild != nil {
			fmt.Printf("rebuild:          %s", stats.Rebuild.State)
			if stats.Rebuild.Message != "" {
				fmt.Printf(" (%s)", stats.Rebuild.Message)
			}
			fmt.Println()
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func processViaHTTP(serverURL string, req *models.ProcessRequest) (*models.ProcessResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/process", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func statsViaHTTP(serverURL string) (*models.Stats, error) {
	resp, err := http.Get(serverURL + "/api/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var stats models.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &stats, nil
}

// Components holds initialized services.
type Components struct {
	Loader       loader.Loader
	Embedder     embedding.Embedder
	Chunks       *store.ChunkStore
	Orchestrator *orchestrator.Orchestrator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Chunks != nil {
		_ = c.Chunks.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	var ld loader.Loader
	var err error
	switch cfg.Loader.Type {
	case "dir":
		ld, err = loader.NewDirLoader(&cfg.Loader)
	default:
		ld, err = loader.NewObjectLoader(&cfg.Loader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loader: %w", err)
	}

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		embedder, err = embedding.NewOpenAIEmbedder(
			cfg.Embedding.Endpoint,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.BatchSize,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	chunks, err := store.NewChunkStore(filepath.Join(cfg.Storage.IndexDir, "chunks.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunk store: %w", err)
	}

	fingerprints := store.NewFingerprintFile(cfg.Storage.FingerprintPath, logger)
	engine := index.NewEngine(embedder, chunks, cfg.Storage.IndexDir)
	orch := orchestrator.New(ld, engine, fingerprints, cfg, logger)

	return &Components{
		Loader:       ld,
		Embedder:     embedder,
		Chunks:       chunks,
		Orchestrator: orch,
	}, nil
}

func printUsage() {
	fmt.Println(`kensaku - Semantic document search service

Usage:
  kensaku server [flags]           Start the HTTP server
  kensaku search [flags] <query>   Search indexed documents
  kensaku process [flags]          Ingest documents and update the index
  kensaku rebuild [flags]          Force a full background rebuild
  kensaku stats [flags]            Show index statistics
  kensaku version                  Show version
  kensaku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string     Server URL (default: http://localhost:8080)
  --limit int         Maximum number of results (0 = server default)
  --threshold float   Minimum similarity score in [0,1] (-1 = server default)
  --output string     Output format: text or json (default: text)

Process Flags:
  --server string    Server URL (default: http://localhost:8080)
  --force            Re-embed and re-index every document

Stats Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  kensaku server
  kensaku process
  kensaku search "deployment checklist"
  kensaku search --limit 10 --threshold 0.5 "release notes"
  kensaku rebuild
  kensaku stats --output json`)
}
