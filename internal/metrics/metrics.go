// Package metrics holds the prometheus collectors of the pipeline and the
// HTTP server exposing them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_publish_attempts_total",
		Help: "Submission attempts by community and outcome",
	}, []string{"community", "outcome"})

	Publications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_publications_total",
		Help: "Successfully published posts by community and kind",
	}, []string{"community", "kind"})

	IdentityRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subposter_identity_rotations_total",
		Help: "Times the publisher switched to the next identity",
	})

	PolicyInferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_policy_inferences_total",
		Help: "Policy inferences by result (inferred or default)",
	}, []string{"result"})

	ContentFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_content_fallbacks_total",
		Help: "Times generated content was replaced by a static fallback",
	}, []string{"stage"})

	SchedulerFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_scheduler_firings_total",
		Help: "Scheduled firings by mode and outcome",
	}, []string{"mode", "outcome"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subposter_commands_total",
		Help: "Handled prompts by intent",
	}, []string{"intent"})
)
