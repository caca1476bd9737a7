package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const systemPrompt = "You are ASHA, a supportive career guidance assistant for " +
	"professionals. Keep answers practical and under 150 words. When the user " +
	"asks about learning opportunities, remind them session recommendations may " +
	"follow your reply."

// OllamaClient generates replies with an Ollama chat model.
type OllamaClient struct {
	host        string
	model       string
	client      *http.Client
	maxTokens   int
	temperature float64
}

// OllamaOptions configures the chat model.
type OllamaOptions struct {
	Host        string
	Model       string
	MaxTokens   int
	Temperature float64
}

type ollamaChatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  ollamaChatTuning `json:"options"`
}

type ollamaChatTuning struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
}

// NewOllamaClient creates a chat client for the given model.
func NewOllamaClient(opts OllamaOptions) *OllamaClient {
	return &OllamaClient{
		host:        opts.Host,
		model:       opts.Model,
		client:      &http.Client{Timeout: 120 * time.Second},
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

// Generate sends the system prompt, history and message to the model and
// returns its reply.
func (c *OllamaClient) Generate(ctx context.Context, history []Message, message string) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: message})

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: ollamaChatTuning{
			NumPredict:  c.maxTokens,
			Temperature: c.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat model unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat model %s returned %d: %s", c.model, resp.StatusCode, string(b))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Message.Content == "" {
		return "", fmt.Errorf("chat model %s returned an empty reply", c.model)
	}
	return out.Message.Content, nil
}

// Name returns the model name.
func (c *OllamaClient) Name() string {
	return c.model
}
