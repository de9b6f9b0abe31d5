// Package adapter rewrites candidate posts so they satisfy a community
// policy.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/post"
	"github.com/abdulachik/subposter/internal/textgen"
)

const (
	disclaimerPhrase = "i will not promote"

	// Disclaimer is appended to titles in communities that forbid promotion.
	Disclaimer = " (" + disclaimerPhrase + ")"

	// DefaultURL replaces the body of text posts downgraded to links.
	DefaultURL = "https://cloud.google.com/blog/topics/developers-practitioners"

	fillerPhrase = "This post has been extended to meet the minimum length requirement. "

	extendMaxTokens = 500
	extendPrompt    = "Extend this text to at least %d characters while keeping it relevant to the topic and suitable for r/%s. Avoid promotion:\n\n%s"
)

// Config holds configuration for the adjuster.
type Config struct {
	// DefaultURL overrides the link used when a text post is downgraded.
	DefaultURL string
}

// Adjuster applies policies to candidates.
type Adjuster struct {
	gen        textgen.Generator
	defaultURL string
}

// New creates an adjuster that extends short bodies with gen. A nil gen
// always falls back to filler text.
func New(gen textgen.Generator, cfg Config) *Adjuster {
	url := cfg.DefaultURL
	if url == "" {
		url = DefaultURL
	}
	return &Adjuster{gen: gen, defaultURL: url}
}

// Adjust returns a copy of c rewritten to satisfy p. Steps run in a fixed
// order: disclaimer, downgrade, then length, so the disclaimer counts
// toward the length and downgraded posts skip extension.
func (a *Adjuster) Adjust(ctx context.Context, c post.Candidate, p policy.Policy) post.Candidate {
	out := c
	out.PollOptions = append([]string(nil), c.PollOptions...)

	if p.RequiresDisclaimer && !HasDisclaimer(out.Title) {
		out.Title += Disclaimer
		slog.Debug("added disclaimer", "community", c.Community)
	}

	if !p.TextPostsAllowed && out.Kind == post.KindText {
		out.Kind = post.KindLink
		if out.URL == "" {
			out.URL = a.defaultURL
			slog.Info("text posts not allowed, using default url", "community", c.Community, "url", out.URL)
		}
		out.Body = ""
	}

	if out.Kind == post.KindText && runeLen(out.Body) < p.MinBodyLength {
		out.Body = a.extend(ctx, out.Community, out.Body, p.MinBodyLength)
	}

	return out
}

// HasDisclaimer reports whether title already carries the disclaimer.
func HasDisclaimer(title string) bool {
	return strings.Contains(strings.ToLower(title), disclaimerPhrase)
}

func (a *Adjuster) extend(ctx context.Context, community, body string, minLen int) string {
	if a.gen != nil {
		extended, err := a.gen.Complete(ctx, fmt.Sprintf(extendPrompt, minLen, community, body), extendMaxTokens)
		extended = strings.TrimSpace(extended)
		switch {
		case err != nil:
			slog.Warn("failed to extend text", "community", community, "error", err)
		case extended == "":
			slog.Warn("failed to extend text", "community", community, "error", textgen.ErrEmptyResponse)
		default:
			slog.Info("extended text", "community", community, "length", runeLen(extended))
			if runeLen(extended) >= minLen {
				return extended
			}
			body = extended
		}
	}

	metrics.ContentFallbacks.WithLabelValues("extend").Inc()
	padded := Pad(body, minLen)
	slog.Info("used filler text", "community", community, "length", runeLen(padded))
	return padded
}

// Pad appends a space and repeated filler so body reaches exactly minLen
// runes. Bodies already long enough are returned unchanged.
func Pad(body string, minLen int) string {
	short := minLen - runeLen(body)
	if short <= 0 {
		return body
	}

	need := short - 1
	if need < 0 {
		need = 0
	}

	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString(" ")

	fillerLen := runeLen(fillerPhrase)
	for need > 0 {
		if need >= fillerLen {
			sb.WriteString(fillerPhrase)
			need -= fillerLen
			continue
		}
		sb.WriteString(string([]rune(fillerPhrase)[:need]))
		need = 0
	}

	return sb.String()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
