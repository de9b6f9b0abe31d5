package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	claudeBaseURL      = "https://api.anthropic.com/v1"
	claudeAPIVersion   = "2023-06-01"
	defaultClaudeModel = "claude-sonnet-4-20250514"
)

// ClaudeConfig holds configuration for the Claude client.
type ClaudeConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ClaudeClient is a client for the Anthropic messages API.
type ClaudeClient struct {
	http    *resty.Client
	apiKey  string
	model   string
	baseURL string
}

// NewClaudeClient creates a new Claude API client.
func NewClaudeClient(cfg ClaudeConfig) *ClaudeClient {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = claudeBaseURL
	}

	return &ClaudeClient{
		http:    resty.New().SetTimeout(120 * time.Second),
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type claudeRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a completion request to Claude.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var out claudeResponse
	res, err := c.http.R().
		WithContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", claudeAPIVersion).
		SetBody(claudeRequest{
			Model:     c.model,
			MaxTokens: maxTokens,
			Messages:  []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		Post(c.baseURL + "/messages")
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	if res.IsError() {
		return "", fmt.Errorf("API error (status %d): %s", res.StatusCode(), res.String())
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", out.Error.Type, out.Error.Message)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// Close releases the HTTP client.
func (c *ClaudeClient) Close() error {
	return c.http.Close()
}
