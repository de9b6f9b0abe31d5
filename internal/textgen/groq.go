package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama3-70b-8192"
)

// GroqConfig holds configuration for an OpenAI-compatible chat endpoint.
type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GroqClient talks to Groq's OpenAI-compatible chat completions API.
type GroqClient struct {
	http    *resty.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGroqClient creates a new Groq client.
func NewGroqClient(cfg GroqConfig) *GroqClient {
	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GroqClient{
		http:    resty.New().SetTimeout(timeout),
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a single-message chat completion.
func (c *GroqClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out chatResponse
	res, err := c.http.R().
		WithContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{
			Model:     c.model,
			Messages:  []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens: maxTokens,
		}).
		SetResult(&out).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}

	if res.IsError() {
		return "", fmt.Errorf("API error (status %d): %s", res.StatusCode(), res.String())
	}
	if out.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", out.Error.Type, out.Error.Message)
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Close releases the HTTP client.
func (c *GroqClient) Close() error {
	return c.http.Close()
}
