// Package search finds posts on the platform and summarizes them.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/textgen"
)

const (
	// DefaultCommunity searches the whole site.
	DefaultCommunity = "all"
	DefaultLimit     = 5

	summaryMaxTokens = 150
	summaryBodyLimit = 1000
	summaryPrompt    = "Summarize: Title: %s\nBody: %s"
)

// Result is one summarized search hit.
type Result struct {
	Title     string `json:"title"`
	Community string `json:"community"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	PostID    string `json:"post_id"`
}

// Searcher runs searches and summarizes each hit.
type Searcher struct {
	gen textgen.Generator
}

// New creates a searcher.
func New(gen textgen.Generator) *Searcher {
	return &Searcher{gen: gen}
}

// Search looks up topic in community and summarizes every hit. Any failure
// yields an empty result.
func (s *Searcher) Search(ctx context.Context, conn platform.Connection, topic, community string, limit int) []Result {
	if community == "" {
		community = DefaultCommunity
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	slog.Info("searching", "topic", topic, "community", community, "limit", limit)

	results, err := s.search(ctx, conn, topic, community, limit)
	if err != nil {
		slog.Error("search failed", "topic", topic, "community", community, "error", err)
		return []Result{}
	}

	slog.Info("search complete", "found", len(results))
	return results
}

func (s *Searcher) search(ctx context.Context, conn platform.Connection, topic, community string, limit int) ([]Result, error) {
	if conn == nil {
		return nil, fmt.Errorf("no platform connection")
	}
	if s.gen == nil {
		return nil, fmt.Errorf("no text generator configured")
	}

	posts, err := conn.Community(community).Search(ctx, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	results := make([]Result, 0, len(posts))
	for _, p := range posts {
		summary, err := s.gen.Complete(ctx, fmt.Sprintf(summaryPrompt, p.Title, truncateRunes(p.Body, summaryBodyLimit)), summaryMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", p.ID, err)
		}

		results = append(results, Result{
			Title:     p.Title,
			Community: p.Community,
			URL:       p.URL,
			Summary:   strings.TrimSpace(summary),
			PostID:    p.ID,
		})
	}

	return results, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
