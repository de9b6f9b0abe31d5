// Package vectorstore keeps a VecLite index of published posts so the
// scheduler can skip drafts that repeat earlier content.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/abdulachik/subposter/internal/post"
)

const (
	historyCollection = "publications"

	// DefaultThreshold is the cosine similarity above which a draft counts
	// as a repeat of an earlier publication.
	DefaultThreshold float32 = 0.92
)

// Config holds configuration for the History.
type Config struct {
	// Path to the VecLite database file (e.g., "data/history.veclite").
	Path string

	// ConfigPath is the path to veclite.yaml. If empty, veclite searches
	// ./veclite.yaml and ~/.veclite/config.yaml.
	ConfigPath string

	Threshold float32
}

// Match is a stored publication similar to a query.
type Match struct {
	PostID     string
	Community  string
	Title      string
	Text       string
	Similarity float32
}

// History indexes publication text for similarity lookups.
type History struct {
	mu        sync.Mutex
	threshold float32

	insert func(text string, payload map[string]any) error
	search func(query string, k int, threshold float32) ([]Match, error)
	count  func() int
	sync   func() error
	close  func() error
}

// New opens the history index using veclite.yaml configuration.
func New(cfg Config) (*History, error) {
	slog.Debug("opening publication history", "path", cfg.Path, "config_path", cfg.ConfigPath)

	vecliteCfg, err := veclite.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load veclite config: %w", err)
	}

	embedder, err := veclite.NewEmbedderFromConfig(vecliteCfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	vecdb, err := veclite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open veclite db: %w", err)
	}

	coll, err := vecdb.CreateCollection(historyCollection,
		veclite.WithDimension(embedder.Dimension()),
		veclite.WithDistanceType(veclite.DistanceCosine),
		veclite.WithHNSW(16, 200),
		veclite.WithTextIndex("title", "community"),
		veclite.WithEmbedder(embedder),
	)
	if err != nil {
		coll, err = vecdb.GetCollection(historyCollection)
		if err != nil {
			vecdb.Close()
			return nil, fmt.Errorf("get collection: %w", err)
		}
	}

	slog.Info("publication history ready",
		"provider", vecliteCfg.Embedder.Provider,
		"records", coll.Count(),
	)

	h := newHistory(cfg.Threshold)
	h.insert = func(text string, payload map[string]any) error {
		_, err := coll.InsertText(text, payload)
		return err
	}
	h.search = func(query string, k int, threshold float32) ([]Match, error) {
		results, err := coll.SearchText(query, veclite.TopK(k), veclite.Threshold(threshold))
		if err != nil {
			return nil, err
		}
		return convertResults(results), nil
	}
	h.count = coll.Count
	h.sync = vecdb.Sync
	h.close = vecdb.Close

	return h, nil
}

func newHistory(threshold float32) *History {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &History{threshold: threshold}
}

// Close closes the VecLite database.
func (h *History) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Document is the text indexed for a post.
func Document(title, body string) string {
	return strings.TrimSpace(title + "\n" + body)
}

// RecordPublication indexes a successful publication.
func (h *History) RecordPublication(_ context.Context, p post.Publication) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload := map[string]any{
		"post_id":   p.PostID,
		"community": p.Community,
		"title":     p.Title,
		"username":  p.Username,
	}

	if err := h.insert(Document(p.Title, p.Body), payload); err != nil {
		return fmt.Errorf("index publication %s: %w", p.PostID, err)
	}

	if h.sync != nil {
		if err := h.sync(); err != nil {
			return fmt.Errorf("sync history: %w", err)
		}
	}

	return nil
}

// Similar returns up to k publications at or above the duplicate threshold.
func (h *History) Similar(_ context.Context, text string, k int) ([]Match, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	matches, err := h.search(text, k, h.threshold)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	return matches, nil
}

// IsDuplicate reports whether text closely matches an earlier publication.
// The closest match is returned when it does.
func (h *History) IsDuplicate(ctx context.Context, text string) (bool, Match, error) {
	matches, err := h.Similar(ctx, text, 1)
	if err != nil {
		return false, Match{}, err
	}
	if len(matches) == 0 {
		return false, Match{}, nil
	}
	return true, matches[0], nil
}

// Count returns the number of indexed publications.
func (h *History) Count() int {
	if h.count == nil {
		return 0
	}
	return h.count()
}

func convertResults(results []veclite.Result) []Match {
	out := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Similarity: r.Score}
		if r.Record.Payload != nil {
			m.PostID = payloadString(r.Record.Payload, "post_id")
			m.Community = payloadString(r.Record.Payload, "community")
			m.Title = payloadString(r.Record.Payload, "title")
		}
		m.Text = r.Record.Content
		out = append(out, m)
	}
	return out
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
