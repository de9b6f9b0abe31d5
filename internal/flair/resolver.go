// Package flair picks the flair applied to a post.
package flair

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/policy"
)

// DefaultText is applied when no usable flair exists at all.
const DefaultText = "I will not promote"

// DefaultExcluded lists flairs that must never be chosen.
var DefaultExcluded = []string{"ban me"}

// DefaultFallbacks returns the static catalogs used when a community
// exposes no usable flairs.
func DefaultFallbacks() map[string][]platform.FlairTemplate {
	return map[string][]platform.FlairTemplate{
		"startups": {
			{Text: "I will not promote"},
			{Text: "Discussion"},
			{Text: "Feedback"},
			{Text: "General"},
		},
	}
}

// Resolution is the flair to apply. An empty ID means the flair must be
// selected by Text after submission; an empty Text means no flair.
type Resolution struct {
	ID   string
	Text string
}

// Config holds configuration for the resolver.
type Config struct {
	Fallbacks   map[string][]platform.FlairTemplate
	Excluded    []string
	DefaultText string
}

// Resolver resolves a desired flair against a community's catalog.
type Resolver struct {
	fallbacks   map[string][]platform.FlairTemplate
	excluded    map[string]struct{}
	defaultText string
}

// New creates a resolver. Nil fields take the package defaults.
func New(cfg Config) *Resolver {
	fallbacks := cfg.Fallbacks
	if fallbacks == nil {
		fallbacks = DefaultFallbacks()
	}
	normalized := make(map[string][]platform.FlairTemplate, len(fallbacks))
	for name, catalog := range fallbacks {
		normalized[policy.Normalize(name)] = catalog
	}

	excludedList := cfg.Excluded
	if excludedList == nil {
		excludedList = DefaultExcluded
	}
	excluded := make(map[string]struct{}, len(excludedList))
	for _, e := range excludedList {
		excluded[normalize(e)] = struct{}{}
	}

	r := &Resolver{fallbacks: normalized, excluded: excluded}
	switch {
	case cfg.DefaultText != "" && !r.isExcluded(cfg.DefaultText):
		r.defaultText = cfg.DefaultText
	case !r.isExcluded(DefaultText):
		r.defaultText = DefaultText
	}
	return r
}

// Resolve fetches the live catalog of community and matches desired
// against it. It never returns an excluded flair.
func (r *Resolver) Resolve(ctx context.Context, community platform.Community, desired string) Resolution {
	name := policy.Normalize(community.Name())

	catalog, err := community.FlairTemplates(ctx)
	if err != nil {
		slog.Warn("failed to fetch flairs", "community", name, "error", err)
		catalog = nil
	}

	usable := lo.Filter(catalog, r.usable)
	if len(usable) == 0 {
		usable = lo.Filter(r.fallbacks[name], r.usable)
		slog.Debug("using fallback flairs", "community", name, "flairs", texts(usable))
	}

	if desired != "" {
		if match, ok := lo.Find(usable, func(f platform.FlairTemplate) bool {
			return normalize(f.Text) == normalize(desired)
		}); ok {
			return Resolution{ID: match.ID, Text: strings.TrimSpace(match.Text)}
		}
	}

	if len(usable) > 0 {
		return Resolution{Text: strings.TrimSpace(usable[0].Text)}
	}

	return Resolution{Text: r.defaultText}
}

func (r *Resolver) usable(f platform.FlairTemplate, _ int) bool {
	return normalize(f.Text) != "" && !r.isExcluded(f.Text)
}

func (r *Resolver) isExcluded(text string) bool {
	_, ok := r.excluded[normalize(text)]
	return ok
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func texts(catalog []platform.FlairTemplate) []string {
	return lo.Map(catalog, func(f platform.FlairTemplate, _ int) string { return f.Text })
}
