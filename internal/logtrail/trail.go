// Package logtrail keeps the recent human-readable log lines returned to
// callers alongside each response.
package logtrail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultMaxLines = 500

// Trail is a bounded, concurrency-safe list of log lines.
type Trail struct {
	mu    sync.Mutex
	lines []string
	max   int
	level slog.Level
	now   func() time.Time
}

// New creates a trail keeping at most maxLines lines.
func New(maxLines int) *Trail {
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	return &Trail{max: maxLines, level: slog.LevelInfo, now: time.Now}
}

// Add appends a line prefixed with the current time.
func (t *Trail) Add(msg string) {
	t.append(t.now().Format(time.DateTime) + " - " + msg)
}

func (t *Trail) append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = append([]string(nil), t.lines[over:]...)
	}
}

// Lines returns a copy of the recorded lines, oldest first.
func (t *Trail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.lines...)
}

// Len returns the number of recorded lines.
func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines)
}

// Handler returns a slog handler that records Info and above into the trail
// and forwards every record to next. A nil next only records.
func (t *Trail) Handler(next slog.Handler) slog.Handler {
	return &handler{trail: t, next: next}
}

type handler struct {
	trail  *Trail
	next   slog.Handler
	attrs  []slog.Attr
	prefix string
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.trail.level {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.trail.level {
		var sb strings.Builder
		sb.WriteString(r.Time.Format(time.DateTime))
		sb.WriteString(" - ")
		sb.WriteString(r.Message)

		write := func(a slog.Attr) bool {
			if a.Equal(slog.Attr{}) {
				return true
			}
			fmt.Fprintf(&sb, " %s%s=%v", h.prefix, a.Key, a.Value.Resolve())
			return true
		}
		for _, a := range h.attrs {
			write(a)
		}
		r.Attrs(write)

		h.trail.append(sb.String())
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}
