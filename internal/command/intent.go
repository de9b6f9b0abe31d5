// Package command turns free-text instructions into intents.
package command

import (
	"time"

	"github.com/abdulachik/subposter/internal/post"
)

// Intent is the action requested by one instruction.
type Intent interface {
	// Name identifies the intent kind in logs and metrics.
	Name() string
}

// Search looks up posts about Topic.
type Search struct {
	Topic     string
	Community string
	Limit     int
}

// Reply comments on PostID, or on every prior search result when PostID
// is empty.
type Reply struct {
	PostID string
	Text   string
}

// GeneratePreview drafts a post without publishing it.
type GeneratePreview struct {
	Community string
	Topic     string
}

// PublishGenerated publishes a reviewed draft as a text post.
type PublishGenerated struct {
	Community string
	Title     string
	Body      string
}

// Publish publishes a user-supplied post.
type Publish struct {
	Community    string
	Kind         post.Kind
	Title        string
	Body         string
	URL          string
	PollOptions  []string
	PollDuration int
}

// Schedule starts a repeating publish loop. Community and Topic are set
// for generated posts; otherwise the queue is used.
type Schedule struct {
	DelayMinutes float64
	Community    string
	Topic        string
}

// Unknown is an instruction that could not be understood.
type Unknown struct {
	Message string
}

func (Search) Name() string           { return "search" }
func (Reply) Name() string            { return "reply" }
func (GeneratePreview) Name() string  { return "generate" }
func (PublishGenerated) Name() string { return "post_generated" }
func (Publish) Name() string          { return "post" }
func (Schedule) Name() string         { return "schedule" }
func (Unknown) Name() string          { return "unknown" }

// Delay returns the interval between firings.
func (s Schedule) Delay() time.Duration {
	return time.Duration(s.DelayMinutes * float64(time.Minute))
}

// Generated reports whether the schedule composes fresh posts.
func (s Schedule) Generated() bool {
	return s.Community != "" && s.Topic != ""
}

// Candidate converts the intent into a post candidate.
func (p Publish) Candidate() post.Candidate {
	return post.Candidate{
		Community:    p.Community,
		Kind:         p.Kind,
		Title:        p.Title,
		Body:         p.Body,
		URL:          p.URL,
		PollOptions:  p.PollOptions,
		PollDuration: p.PollDuration,
	}
}

// Candidate converts the intent into a text post candidate.
func (p PublishGenerated) Candidate() post.Candidate {
	return post.Candidate{
		Community: p.Community,
		Kind:      post.KindText,
		Title:     p.Title,
		Body:      p.Body,
	}
}
