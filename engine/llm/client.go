// Package llm implements the two chat-completion operators the pipeline
// runs over a paper batch: LLMSummarizer (produce a summary) and LLMFilter
// (accept/reject against a topic). Both share one OpenAI-compatible chat
// client, the same request/response shape the teacher's pkg/ollama client
// uses against a different backend.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Config is the subset of the pipeline's llm.* configuration a client needs.
type Config struct {
	ModelName            string
	APIKey               string
	BaseURL              string
	Temperature          float64
	MaxTokens            int
	MaxConcurrentRequests int
}

// Client is a minimal OpenAI-compatible chat completion client.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a Client against cfg.BaseURL (an OpenAI, Azure-OpenAI, or
// self-hosted gateway endpoint exposing /chat/completions).
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends a single-turn system+user prompt and returns the model's reply.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return cr.Choices[0].Message.Content, nil
}
