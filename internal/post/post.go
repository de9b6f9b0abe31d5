// Package post defines the candidate post that flows through the pipeline.
package post

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the submission type of a post.
type Kind string

const (
	KindText  Kind = "text"
	KindLink  Kind = "link"
	KindImage Kind = "image"
	KindPoll  Kind = "poll"
)

// ParseKind maps a textual kind to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindLink, KindImage, KindPoll:
		return k, nil
	case "":
		return KindText, nil
	default:
		return "", fmt.Errorf("unknown post kind %q", s)
	}
}

// Candidate is a post about to be published. It is built per request and
// never persisted.
type Candidate struct {
	Community    string   `yaml:"community" json:"community"`
	Kind         Kind     `yaml:"kind" json:"kind"`
	Title        string   `yaml:"title" json:"title"`
	Body         string   `yaml:"body,omitempty" json:"body,omitempty"`
	URL          string   `yaml:"url,omitempty" json:"url,omitempty"`
	ImagePath    string   `yaml:"image_path,omitempty" json:"image_path,omitempty"`
	PollOptions  []string `yaml:"poll_options,omitempty" json:"poll_options,omitempty"`
	PollDuration int      `yaml:"poll_duration,omitempty" json:"poll_duration,omitempty"`
}

// Validate checks the fields each kind needs before submission.
func (c Candidate) Validate() error {
	if c.Community == "" {
		return fmt.Errorf("community is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("title is required")
	}

	switch c.Kind {
	case KindText:
	case KindLink:
		if c.URL == "" {
			return fmt.Errorf("link post requires a url")
		}
	case KindImage:
		if c.ImagePath == "" {
			return fmt.Errorf("image post requires an image path")
		}
	case KindPoll:
		if len(c.PollOptions) < 2 {
			return fmt.Errorf("poll requires at least two options")
		}
	default:
		return fmt.Errorf("unknown post kind %q", c.Kind)
	}

	return nil
}

// Publication is the outcome of a successful publish.
type Publication struct {
	PostID    string
	Community string
	Kind      Kind
	Title     string
	Body      string
	Username  string
	URL       string
	CreatedAt time.Time
}
