// Package publisher submits candidate posts, rotating identities and
// retrying when an attempt fails.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abdulachik/subposter/internal/adapter"
	"github.com/abdulachik/subposter/internal/flair"
	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/post"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 5 * time.Second
)

// Recorder is notified of every successful publication.
type Recorder interface {
	RecordPublication(ctx context.Context, p post.Publication) error
}

// Config holds the engine's collaborators.
type Config struct {
	Client   platform.Client
	Pool     *identity.Pool
	Policies *policy.Store
	Adjuster *adapter.Adjuster
	Resolver *flair.Resolver

	Recorders []Recorder

	// Attempts and Backoff default to 3 and 5s.
	Attempts int
	Backoff  time.Duration

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine publishes posts. Calls are serialized so only one
// publish-or-rotate sequence runs at a time.
type Engine struct {
	mu sync.Mutex

	client    platform.Client
	pool      *identity.Pool
	policies  *policy.Store
	adjuster  *adapter.Adjuster
	resolver  *flair.Resolver
	recorders []Recorder
	attempts  int
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates an engine.
func New(cfg Config) *Engine {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	resolver := cfg.Resolver
	if resolver == nil {
		resolver = flair.New(flair.Config{})
	}

	adjuster := cfg.Adjuster
	if adjuster == nil {
		adjuster = adapter.New(nil, adapter.Config{})
	}

	policies := cfg.Policies
	if policies == nil {
		policies = policy.NewStore(policy.Seeds())
	}

	return &Engine{
		client:    cfg.Client,
		pool:      cfg.Pool,
		policies:  policies,
		adjuster:  adjuster,
		resolver:  resolver,
		recorders: cfg.Recorders,
		attempts:  attempts,
		backoff:   backoff,
		sleep:     sleep,
	}
}

// Connection opens a connection for the current identity.
func (e *Engine) Connection(ctx context.Context) (platform.Connection, error) {
	id := e.pool.Current()
	conn, err := e.client.Connect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("connect as %s: %w", id.Username, err)
	}
	return conn, nil
}

// Policies exposes the policy store the engine consults.
func (e *Engine) Policies() *policy.Store {
	return e.policies
}

// Publish submits c and returns the new post's ID in a one-element slice.
// An empty slice means every attempt failed; the failures are logged.
func (e *Engine) Publish(ctx context.Context, c post.Candidate) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	slog.Info("creating post", "community", c.Community, "kind", c.Kind)

	for attempt := 1; attempt <= e.attempts; attempt++ {
		pub, err := e.attempt(ctx, c)
		if err == nil {
			metrics.PublishAttempts.WithLabelValues(pub.Community, "success").Inc()
			metrics.Publications.WithLabelValues(pub.Community, string(pub.Kind)).Inc()
			slog.Info("posted",
				"community", pub.Community,
				"post_id", pub.PostID,
				"url", pub.URL,
				"username", pub.Username,
			)
			e.record(ctx, pub)
			return []string{pub.PostID}
		}

		metrics.PublishAttempts.WithLabelValues(policy.Normalize(c.Community), "failure").Inc()
		slog.Warn("post attempt failed",
			"community", c.Community,
			"attempt", attempt,
			"max_attempts", e.attempts,
			"error", err,
		)

		if attempt == e.attempts {
			slog.Error("failed to post", "community", c.Community, "error", err)
			break
		}

		next := e.pool.Next()
		metrics.IdentityRotations.Inc()
		slog.Info("switched identity", "username", next.Username)

		if err := e.sleep(ctx, e.backoff); err != nil {
			slog.Error("failed to post", "community", c.Community, "error", err)
			break
		}
	}

	return []string{}
}

func (e *Engine) attempt(ctx context.Context, c post.Candidate) (post.Publication, error) {
	if err := ctx.Err(); err != nil {
		return post.Publication{}, err
	}

	conn, err := e.Connection(ctx)
	if err != nil {
		return post.Publication{}, err
	}

	community := policy.Normalize(c.Community)
	p := e.policies.Get(ctx, conn, community)
	adjusted := e.adjuster.Adjust(ctx, c, p)
	adjusted.Community = community

	slog.Debug("post details",
		"kind", adjusted.Kind,
		"title", adjusted.Title,
		"url", adjusted.URL,
	)

	if err := adjusted.Validate(); err != nil {
		return post.Publication{}, fmt.Errorf("invalid post: %w", err)
	}

	sub := conn.Community(community)

	var tag flair.Resolution
	if p.TagRequired {
		tag = e.resolver.Resolve(ctx, sub, p.DefaultTag)
		slog.Debug("selected flair", "community", community, "text", tag.Text, "id", tag.ID)
	}

	postID, err := submit(ctx, sub, adjusted, tag.ID)
	if err != nil {
		return post.Publication{}, err
	}

	if tag.ID == "" && tag.Text != "" {
		if err := sub.SelectFlair(ctx, postID, tag.Text); err != nil {
			slog.Warn("post-submission flair failed", "post_id", postID, "flair", tag.Text, "error", err)
		} else {
			slog.Debug("applied flair after submission", "post_id", postID, "flair", tag.Text)
		}
	}

	return post.Publication{
		PostID:    postID,
		Community: community,
		Kind:      adjusted.Kind,
		Title:     adjusted.Title,
		Body:      adjusted.Body,
		Username:  conn.Username(),
		URL:       platform.PermalinkFor(community, postID),
		CreatedAt: time.Now(),
	}, nil
}

func submit(ctx context.Context, sub platform.Community, c post.Candidate, flairID string) (string, error) {
	switch c.Kind {
	case post.KindText:
		return sub.SubmitText(ctx, platform.TextSubmission{Title: c.Title, Body: c.Body, FlairID: flairID})
	case post.KindLink:
		return sub.SubmitLink(ctx, platform.LinkSubmission{Title: c.Title, URL: c.URL, FlairID: flairID})
	case post.KindImage:
		return sub.SubmitImage(ctx, platform.ImageSubmission{Title: c.Title, ImagePath: c.ImagePath, FlairID: flairID})
	case post.KindPoll:
		return sub.SubmitPoll(ctx, platform.PollSubmission{
			Title:    c.Title,
			Body:     c.Body,
			Options:  c.PollOptions,
			Duration: c.PollDuration,
			FlairID:  flairID,
		})
	default:
		return "", fmt.Errorf("unsupported post kind %q", c.Kind)
	}
}

func (e *Engine) record(ctx context.Context, pub post.Publication) {
	for _, r := range e.recorders {
		if err := r.RecordPublication(ctx, pub); err != nil {
			slog.Warn("failed to record publication", "post_id", pub.PostID, "error", err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
