package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// OllamaEmbedder embeds text with an Ollama embedding model over HTTP.
// Responses are cached by text so repeated queries skip the network.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client
	cache  *Cache

	mu   sync.Mutex
	dims int // fixed at the first successful embed
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder creates an embedder for model served at host.
// No network call happens until Probe or the first Embed.
func NewOllamaEmbedder(host, model string, cacheSize int) *OllamaEmbedder {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &OllamaEmbedder{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  NewCache(cacheSize),
	}
}

// Probe verifies the model is reachable and fixes the embedding dimension.
func (e *OllamaEmbedder) Probe(ctx context.Context) error {
	_, err := e.Embed(ctx, "ping")
	return err
}

// Embed returns the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: model %s returned %d: %s", ErrUnavailable, e.model, resp.StatusCode, string(b))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: model %s returned empty embedding", ErrUnavailable, e.model)
	}

	e.mu.Lock()
	if e.dims == 0 {
		e.dims = len(out.Embedding)
	} else if e.dims != len(out.Embedding) {
		dims := e.dims
		e.mu.Unlock()
		return nil, fmt.Errorf("model %s changed dimensions: got %d, expected %d", e.model, len(out.Embedding), dims)
	}
	e.mu.Unlock()

	e.cache.Set(text, out.Embedding)
	return out.Embedding, nil
}

// EmbedBatch embeds texts one request at a time. The per-text API makes batch
// boundaries irrelevant to output values.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d/%d: %w", i+1, len(texts), err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding width, or 0 before the first encode.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// Model returns the model name this embedder encodes with.
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}
