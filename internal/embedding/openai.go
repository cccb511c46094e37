package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Requests are
// batched; results for cached texts are served locally. Provider failures are
// reported as ErrProvider and never retried here.
type OpenAIEmbedder struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	batchSize  int
	cache      *Cache
	client     *http.Client
}

// NewOpenAIEmbedder creates an embedder for the given endpoint and model.
// cacheSize <= 0 disables caching; batchSize <= 0 defaults to 64.
func NewOpenAIEmbedder(endpoint, apiKey, model string, dimensions, batchSize, cacheSize int) (*OpenAIEmbedder, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	e := &OpenAIEmbedder{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
	if cacheSize > 0 {
		e.cache = NewCache(cacheSize)
	}
	return e, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts, splitting into provider-sized batches. Cached
// texts are not sent upstream.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if e.cache != nil {
			if emb, ok := e.cache.Get(text); ok {
				results[i] = emb
				continue
			}
		}
		missing = append(missing, i)
	}
	for start := 0; start < len(missing); start += e.batchSize {
		end := start + e.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		inputs := make([]string, len(batch))
		for j, idx := range batch {
			inputs[j] = texts[idx]
		}
		embeddings, err := e.request(ctx, inputs)
		if err != nil {
			return nil, err
		}
		for j, idx := range batch {
			results[idx] = embeddings[j]
			if e.cache != nil {
				e.cache.Set(texts[idx], embeddings[j])
			}
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: inputs, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, string(b))
	}
	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrProvider, parsed.Error.Message)
	}
	if len(parsed.Data) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProvider, len(parsed.Data), len(inputs))
	}
	out := make([][]float32, len(inputs))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProvider, d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: embedding dimension %d, expected %d", ErrProvider, len(d.Embedding), e.dimensions)
		}
		out[d.Index] = d.Embedding
	}
	for i, emb := range out {
		if emb == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrProvider, i)
		}
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client keeps no state worth releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
