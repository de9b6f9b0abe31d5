package policy

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/platform"
)

// Store caches policies per community for the life of the process.
type Store struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewStore creates a store seeded with the given policies.
func NewStore(seeds map[string]Policy) *Store {
	policies := make(map[string]Policy, len(seeds))
	for name, p := range seeds {
		policies[Normalize(name)] = p
	}
	return &Store{policies: policies}
}

// Get returns the cached policy for community, inferring it through conn
// on first use. It never fails: the default policy stands in for anything
// that could not be determined.
func (s *Store) Get(ctx context.Context, conn platform.Connection, community string) Policy {
	key := Normalize(community)

	s.mu.RLock()
	p, ok := s.policies[key]
	s.mu.RUnlock()
	if ok {
		return p
	}

	return s.Refresh(ctx, conn, community)
}

// Refresh re-infers the policy for community and replaces the cached one.
func (s *Store) Refresh(ctx context.Context, conn platform.Connection, community string) Policy {
	key := Normalize(community)
	sig, ok := collect(ctx, conn, key)
	if !ok {
		metrics.PolicyInferences.WithLabelValues("default").Inc()
		if cached, found := s.Lookup(key); found {
			slog.Warn("policy inference failed, keeping cached policy", "community", key)
			return cached
		}
		slog.Warn("policy inference failed, using default", "community", key)
		return Default()
	}

	p := Infer(sig)

	s.mu.Lock()
	s.policies[key] = p
	s.mu.Unlock()

	metrics.PolicyInferences.WithLabelValues("inferred").Inc()
	slog.Info("inferred community policy",
		"community", key,
		"requires_disclaimer", p.RequiresDisclaimer,
		"tag_required", p.TagRequired,
		"default_tag", p.DefaultTag,
		"min_body_length", p.MinBodyLength,
		"text_posts_allowed", p.TextPostsAllowed,
	)

	return p
}

// Set overrides the policy for a community.
func (s *Store) Set(community string, p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[Normalize(community)] = p
}

// Lookup returns the cached policy without inferring.
func (s *Store) Lookup(community string) (Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[Normalize(community)]
	return p, ok
}

// Communities lists the communities with a cached policy, sorted.
func (s *Store) Communities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// collect fetches the inference signals step by step. It reports false
// only when every step failed.
func collect(ctx context.Context, conn platform.Connection, community string) (sig Signals, ok bool) {
	if conn == nil {
		return sig, false
	}
	sub := conn.Community(community)

	if st, err := sub.SubmissionType(ctx); err != nil {
		slog.Warn("failed to fetch submission type", "community", community, "error", err)
	} else {
		sig.SubmissionType = st
		ok = true
	}

	if rules, err := sub.Rules(ctx); err != nil {
		slog.Warn("failed to fetch rules", "community", community, "error", err)
	} else {
		for _, r := range rules {
			sig.RuleTexts = append(sig.RuleTexts, r.Text())
		}
		ok = true
	}

	if flairs, err := sub.FlairTemplates(ctx); err != nil {
		slog.Warn("failed to fetch flair templates", "community", community, "error", err)
	} else {
		sig.Flairs = flairs
		ok = true
	}

	return sig, ok
}
