// Package app wires the publishing pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/abdulachik/subposter/internal/adapter"
	"github.com/abdulachik/subposter/internal/agent"
	"github.com/abdulachik/subposter/internal/composer"
	"github.com/abdulachik/subposter/internal/config"
	"github.com/abdulachik/subposter/internal/db"
	"github.com/abdulachik/subposter/internal/export"
	"github.com/abdulachik/subposter/internal/flair"
	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/logtrail"
	"github.com/abdulachik/subposter/internal/notify"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/platform/reddit"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/publisher"
	"github.com/abdulachik/subposter/internal/scheduler"
	"github.com/abdulachik/subposter/internal/search"
	"github.com/abdulachik/subposter/internal/textgen"
	"github.com/abdulachik/subposter/internal/vectorstore"
)

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Store     *db.Store
	History   *vectorstore.History
	Generator textgen.Generator
	Pool      *identity.Pool
	Policies  *policy.Store
	Engine    *publisher.Engine
	Scheduler *scheduler.Scheduler
	Agent     *agent.Agent
	Trail     *logtrail.Trail

	closers []io.Closer
}

// OpenStore opens and migrates the database.
func OpenStore(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// New creates the application with every dependency wired up. The Reddit
// client is built from cfg; use NewWithClient to supply another platform.
func New(ctx context.Context, cfg *config.Config, trail *logtrail.Trail) (*App, error) {
	client := reddit.New(reddit.Config{RequestsPerSecond: cfg.RedditRequestsPerSecond})

	a, err := NewWithClient(ctx, cfg, client, trail)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.closers = append(a.closers, client)

	return a, nil
}

// NewWithClient creates the application around an existing platform client.
func NewWithClient(ctx context.Context, cfg *config.Config, client platform.Client, trail *logtrail.Trail) (*App, error) {
	pool, err := identity.NewPool(cfg.Identities)
	if err != nil {
		return nil, err
	}

	gen, err := textgen.New(ctx, cfg.TextGen())
	if err != nil {
		return nil, fmt.Errorf("create text generator: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		closeIfCloser(gen)
		return nil, err
	}

	if trail == nil {
		trail = logtrail.New(0)
	}

	a := &App{
		Config:    cfg,
		Store:     store,
		Generator: gen,
		Pool:      pool,
		Policies:  policy.NewStore(cfg.PolicySeeds),
		Trail:     trail,
	}
	if c, ok := gen.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	recorders := []publisher.Recorder{store}

	if cfg.VecLitePath != "" {
		history, err := vectorstore.New(vectorstore.Config{
			Path:       cfg.VecLitePath,
			ConfigPath: cfg.VecLiteConfigPath,
			Threshold:  float32(cfg.DuplicateThreshold),
		})
		if err != nil {
			slog.Error("failed to open publication history, duplicate check disabled", "error", err)
		} else {
			a.History = history
			a.closers = append(a.closers, history)
			recorders = append(recorders, history)
		}
	}

	a.Engine = publisher.New(publisher.Config{
		Client:    client,
		Pool:      pool,
		Policies:  a.Policies,
		Adjuster:  adapter.New(gen, adapter.Config{DefaultURL: cfg.DefaultLinkURL}),
		Resolver:  flair.New(flair.Config{Excluded: cfg.ExcludedFlairs, DefaultText: cfg.DefaultFlair}),
		Recorders: recorders,
		Attempts:  cfg.PublishAttempts,
		Backoff:   cfg.PublishBackoff,
	})

	drafter := composer.New(composer.Config{Generator: gen, Policies: a.Policies})

	schedCfg := scheduler.Config{
		Publisher: a.Engine,
		Drafter:   drafter,
		Queue:     store,
		Notifier:  a.notifier(),
	}
	if a.History != nil {
		schedCfg.Duplicates = a.History
	}
	a.Scheduler = scheduler.New(schedCfg)

	a.Agent = agent.New(agent.Config{
		Publisher: a.Engine,
		Searcher:  search.New(gen),
		Drafter:   drafter,
		Scheduler: a.Scheduler,
		Exporter:  export.NewCSV(cfg.ExportDir),
		Trail:     trail,
		Logger:    slog.Default(),
	})

	return a, nil
}

func (a *App) notifier() notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(nil)}
	if a.Config.NotifyWebhookURL != "" {
		webhook := notify.NewWebhookNotifier(notify.WebhookConfig{URL: a.Config.NotifyWebhookURL})
		a.closers = append(a.closers, webhook)
		notifiers = append(notifiers, webhook)
	}
	return notifiers
}

// Close stops the scheduler and closes all resources.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}
