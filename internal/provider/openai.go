package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/repost-sh/repost/internal/config"
	"github.com/repost-sh/repost/internal/repost"
)

// Generator produces candidate text for a prompt. Implementations may fail
// or be absent entirely; callers recover with the deterministic fallback.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)
}

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ Generator = (*OpenAIClient)(nil)

// NewOpenAI builds a client from configuration. An empty API key yields a
// client whose Generate always reports ProviderError.
func NewOpenAI(cfg config.ProviderConfig) *OpenAIClient {
	return &OpenAIClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for platform text. Every failure is wrapped in
// repost.ProviderError so the caller can switch to the fallback transform.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", repost.ProviderError{Err: errors.New("openai client not configured")}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.system(maxLength)},
			{Role: "user", Content: prompt},
		},
		// Rough token-to-character estimate, same heuristic as the
		// upstream generation settings.
		MaxTokens:   maxLength / 2,
		Temperature: 0.7,
	})
	if err != nil {
		return "", repost.ProviderError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", repost.ProviderError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", repost.ProviderError{Err: fmt.Errorf("call endpoint: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", repost.ProviderError{
			Err: fmt.Errorf("endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", repost.ProviderError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", repost.ProviderError{Err: errors.New("empty completion")}
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", repost.ProviderError{Err: errors.New("blank completion")}
	}
	return text, nil
}

func (c *OpenAIClient) system(maxLength int) string {
	prompt := strings.TrimSpace(c.systemPrompt)
	if prompt == "" {
		prompt = "You are a social media content creator."
	}
	return fmt.Sprintf("%s Generate engaging content that is under %d characters.", prompt, maxLength)
}
