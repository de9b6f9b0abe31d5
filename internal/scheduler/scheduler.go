// Package scheduler runs the single repeating publish task.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abdulachik/subposter/internal/composer"
	"github.com/abdulachik/subposter/internal/db"
	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/notify"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/post"
	"github.com/abdulachik/subposter/internal/vectorstore"
)

// Health components reported by the scheduler.
const (
	ComponentCompose = "compose"
	ComponentQueue   = "queue"
	ComponentPublish = "publish"
)

// Task describes what each firing publishes. With both Community and
// Topic set it generates a fresh post, otherwise it takes the next queued
// post.
type Task struct {
	Delay     time.Duration
	Community string
	Topic     string
}

// Generated reports whether firings generate their post.
func (t Task) Generated() bool {
	return t.Community != "" && t.Topic != ""
}

func (t Task) mode() string {
	if t.Generated() {
		return "generated"
	}
	return "queue"
}

// Publisher submits posts.
type Publisher interface {
	Connection(ctx context.Context) (platform.Connection, error)
	Publish(ctx context.Context, c post.Candidate) []string
}

// Drafter writes generated posts.
type Drafter interface {
	Draft(ctx context.Context, conn platform.Connection, community, topic string) composer.Draft
}

// Queue hands out queued posts in rotation.
type Queue interface {
	NextQueued(ctx context.Context) (db.QueuedPost, bool, error)
}

// DuplicateChecker recognizes drafts that repeat earlier publications.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, text string) (bool, vectorstore.Match, error)
}

// Config holds the scheduler's collaborators. Duplicates and Notifier are
// optional.
type Config struct {
	Publisher  Publisher
	Drafter    Drafter
	Queue      Queue
	Duplicates DuplicateChecker
	Notifier   notify.Notifier
	Health     *Health
}

// Scheduler owns the single active task slot. Replacing the task cancels
// the running loop and waits for it to exit before arming the new one, so
// firings never overlap.
type Scheduler struct {
	publisher  Publisher
	drafter    Drafter
	queue      Queue
	duplicates DuplicateChecker
	notifier   notify.Notifier
	health     *Health

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	task   *Task
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle scheduler.
func New(cfg Config) *Scheduler {
	health := cfg.Health
	if health == nil {
		health = NewHealth()
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(nil)
	}

	base, stop := context.WithCancel(context.Background())

	return &Scheduler{
		publisher:  cfg.Publisher,
		drafter:    cfg.Drafter,
		queue:      cfg.Queue,
		duplicates: cfg.Duplicates,
		notifier:   notifier,
		health:     health,
		base:       base,
		stop:       stop,
	}
}

// Replace cancels any running task and starts t. The first firing happens
// immediately.
func (s *Scheduler) Replace(t Task) error {
	if t.Delay <= 0 {
		return fmt.Errorf("schedule delay must be positive, got %s", t.Delay)
	}
	if t.Generated() && s.drafter == nil {
		return fmt.Errorf("scheduler has no drafter for generated posts")
	}
	if !t.Generated() && s.queue == nil {
		return fmt.Errorf("scheduler has no post queue")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.base.Err(); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}

	s.cancelLocked()

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	task := t

	s.task = &task
	s.cancel = cancel
	s.done = done

	slog.Info("schedule armed",
		"mode", t.mode(),
		"delay", t.Delay,
		"community", t.Community,
		"topic", t.Topic,
	)

	go func() {
		defer close(done)
		s.loop(ctx, task)
	}()

	return nil
}

// Cancel stops the running task, if any, and waits for it to exit.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) cancelLocked() {
	if s.cancel == nil {
		return
	}

	slog.Info("cancelling active schedule")
	s.cancel()
	<-s.done

	s.task = nil
	s.cancel = nil
	s.done = nil
}

// Stop cancels the running task and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stop()
}

// Active returns the running task.
func (s *Scheduler) Active() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return Task{}, false
	}
	return *s.task, true
}

// Health returns the health tracker.
func (s *Scheduler) Health() *Health {
	return s.health
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("schedule stopped", "mode", t.mode())
			return
		case <-timer.C:
		}

		s.fire(ctx, t)

		if ctx.Err() != nil {
			continue
		}
		slog.Info("next post scheduled", "in", t.Delay)
		timer.Reset(t.Delay)
	}
}

// fire publishes one post. Its outcome never stops the loop.
func (s *Scheduler) fire(ctx context.Context, t Task) {
	var (
		c  post.Candidate
		ok bool
	)
	if t.Generated() {
		c, ok = s.generated(ctx, t)
	} else {
		c, ok = s.queued(ctx)
	}
	if !ok {
		metrics.SchedulerFirings.WithLabelValues(t.mode(), "skipped").Inc()
		return
	}

	ids := s.publisher.Publish(ctx, c)
	if len(ids) == 0 {
		err := fmt.Errorf("publishing %q to r/%s failed", c.Title, c.Community)
		s.health.SetUnhealthy(ComponentPublish, err)
		metrics.SchedulerFirings.WithLabelValues(t.mode(), "failed").Inc()

		if ctx.Err() != nil {
			return
		}
		if nerr := s.notifier.Send(ctx, notify.Notification{
			Subject: "Scheduled post failed",
			Body:    err.Error(),
		}); nerr != nil {
			slog.Warn("failed to send notification", "error", nerr)
		}
		return
	}

	s.health.SetHealthy(ComponentPublish, "published "+ids[0])
	metrics.SchedulerFirings.WithLabelValues(t.mode(), "published").Inc()
	slog.Info("scheduled post successful", "title", c.Title, "community", c.Community, "post_id", ids[0])
}

func (s *Scheduler) generated(ctx context.Context, t Task) (post.Candidate, bool) {
	conn, err := s.publisher.Connection(ctx)
	if err != nil {
		slog.Warn("drafting without a connection", "error", err)
	}

	d := s.drafter.Draft(ctx, conn, t.Community, t.Topic)

	if s.duplicates != nil {
		dup, match, err := s.duplicates.IsDuplicate(ctx, vectorstore.Document(d.Title, d.Text))
		if err != nil {
			slog.Warn("duplicate check failed", "error", err)
		} else if dup {
			slog.Info("skipping repeated draft",
				"title", d.Title,
				"similar_post", match.PostID,
				"similarity", match.Similarity,
			)
			s.health.SetHealthy(ComponentCompose, "skipped repeated draft")
			return post.Candidate{}, false
		}
	}

	s.health.SetHealthy(ComponentCompose, "drafted "+d.Title)
	return post.Candidate{
		Community: d.Community,
		Kind:      post.KindText,
		Title:     d.Title,
		Body:      d.Text,
	}, true
}

func (s *Scheduler) queued(ctx context.Context) (post.Candidate, bool) {
	q, ok, err := s.queue.NextQueued(ctx)
	if err != nil {
		s.health.SetUnhealthy(ComponentQueue, err)
		slog.Error("failed to read post queue", "error", err)
		return post.Candidate{}, false
	}
	if !ok {
		s.health.SetHealthy(ComponentQueue, "empty")
		slog.Info("no posts available for scheduling")
		return post.Candidate{}, false
	}

	s.health.SetHealthy(ComponentQueue, "next "+q.ID)
	return q.Candidate, true
}
