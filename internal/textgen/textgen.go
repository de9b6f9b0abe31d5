// Package textgen wraps the LLM providers used to write, extend and
// summarize posts.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from text generator")

// Generator completes a prompt with at most maxTokens output tokens.
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Complete calls f.
func (f GeneratorFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Supported providers.
const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the generator for cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGroq:
		return NewGroqClient(GroqConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case ProviderAnthropic:
		return NewClaudeClient(ClaudeConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown text generation provider %q", cfg.Provider)
	}
}

// ExtractJSONObject returns the first JSON object found in an LLM response.
// A ```json fenced block wins; otherwise the outermost balanced braces are
// used.
func ExtractJSONObject(response string) (string, error) {
	if start := strings.Index(response, "```json"); start != -1 {
		rest := response[start+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("malformed JSON object in response")
}
