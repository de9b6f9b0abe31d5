// Package composer drafts posts with the text generator.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/textgen"
)

const (
	defaultAttempts = 3
	defaultPause    = 2 * time.Second
	draftMaxTokens  = 1000
)

// Draft is a generated post awaiting review or publication.
type Draft struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Community string `json:"community"`
}

// Config holds configuration for the composer.
type Config struct {
	Generator textgen.Generator
	Policies  *policy.Store

	Attempts int
	Pause    time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
}

// Composer writes post drafts.
type Composer struct {
	gen      textgen.Generator
	policies *policy.Store
	attempts int
	pause    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a composer.
func New(cfg Config) *Composer {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	pause := cfg.Pause
	if pause <= 0 {
		pause = defaultPause
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}

	policies := cfg.Policies
	if policies == nil {
		policies = policy.NewStore(policy.Seeds())
	}

	return &Composer{
		gen:      cfg.Generator,
		policies: policies,
		attempts: attempts,
		pause:    pause,
		sleep:    sleep,
	}
}

// Draft generates a post about topic for community. When generation keeps
// failing a canned draft is returned, so the result is always usable.
func (c *Composer) Draft(ctx context.Context, conn platform.Connection, community, topic string) Draft {
	community = policy.Normalize(community)
	p := c.policies.Get(ctx, conn, community)
	prompt := fmt.Sprintf(draftPrompt, community, topic, p.MinBodyLength)

	for attempt := 1; attempt <= c.attempts && c.gen != nil; attempt++ {
		d, err := c.generate(ctx, prompt)
		if err == nil {
			d.Community = community
			slog.Info("generated post", "community", community, "title", d.Title)
			return d
		}

		slog.Warn("failed to generate post", "community", community, "attempt", attempt, "error", err)

		if attempt < c.attempts {
			if err := c.sleep(ctx, c.pause); err != nil {
				break
			}
		}
	}

	slog.Info("using fallback post", "community", community, "topic", topic)
	metrics.ContentFallbacks.WithLabelValues("compose").Inc()
	return Fallback(community, topic)
}

func (c *Composer) generate(ctx context.Context, prompt string) (Draft, error) {
	response, err := c.gen.Complete(ctx, prompt, draftMaxTokens)
	if err != nil {
		return Draft{}, fmt.Errorf("complete: %w", err)
	}

	slog.Debug("raw draft response", "length", len(response))
	return parseDraft(response)
}

func parseDraft(response string) (Draft, error) {
	raw, err := textgen.ExtractJSONObject(response)
	if err != nil {
		return Draft{}, err
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Draft{}, fmt.Errorf("parse draft: %w", err)
	}

	d.Title = strings.TrimSpace(d.Title)
	d.Text = strings.TrimSpace(d.Text)
	if d.Title == "" || d.Text == "" {
		return Draft{}, fmt.Errorf("draft missing title or text")
	}

	return d, nil
}

// Fallback returns the canned draft used when generation fails.
func Fallback(community, topic string) Draft {
	return Draft{
		Title:     fmt.Sprintf(fallbackTitle, topic),
		Text:      fmt.Sprintf(fallbackText, topic, community),
		Community: community,
	}
}
