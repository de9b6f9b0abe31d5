// Package platform defines the contract the publishing pipeline needs from
// the social platform. Implementations live in subpackages.
package platform

import (
	"context"
	"errors"

	"github.com/abdulachik/subposter/internal/identity"
)

// ErrUnexpectedResponse is wrapped by clients when the platform answers with
// something they cannot interpret.
var ErrUnexpectedResponse = errors.New("unexpected platform response")

// Rule is one entry of a community's rule list.
type Rule struct {
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
}

// Text joins the rule's fields into a single searchable string.
func (r Rule) Text() string {
	return r.Description + " " + r.ShortName
}

// FlairTemplate is a user-selectable post flair. ID is empty for catalog
// entries that can only be applied by display text.
type FlairTemplate struct {
	Text string `yaml:"text" json:"text"`
	ID   string `yaml:"id" json:"id"`
}

// Post is a post returned by search.
type Post struct {
	ID        string
	Title     string
	Body      string
	URL       string
	Community string
}

// TextSubmission is a self post.
type TextSubmission struct {
	Title   string
	Body    string
	FlairID string
}

// LinkSubmission is a link post.
type LinkSubmission struct {
	Title   string
	URL     string
	FlairID string
}

// ImageSubmission is an image post uploaded from a local file.
type ImageSubmission struct {
	Title     string
	ImagePath string
	FlairID   string
}

// PollSubmission is a poll post. Duration is in days.
type PollSubmission struct {
	Title    string
	Body     string
	Options  []string
	Duration int
	FlairID  string
}

// Client opens connections bound to a publishing identity.
type Client interface {
	Connect(ctx context.Context, id identity.Identity) (Connection, error)
}

// Connection is an authenticated session for one identity.
type Connection interface {
	// Username returns the identity the connection posts as.
	Username() string

	// Community returns a handle for the named community. It does not
	// perform any request.
	Community(name string) Community

	// Reply comments on a post and returns the new comment ID.
	Reply(ctx context.Context, postID, text string) (string, error)
}

// Community exposes the per-community operations.
type Community interface {
	Name() string

	// SubmissionType reports the allowed submission type ("any", "self" or "link").
	SubmissionType(ctx context.Context) (string, error)

	// Rules lists the community's posting rules.
	Rules(ctx context.Context) ([]Rule, error)

	// FlairTemplates lists the user-selectable post flairs.
	FlairTemplates(ctx context.Context) ([]FlairTemplate, error)

	SubmitText(ctx context.Context, s TextSubmission) (string, error)
	SubmitLink(ctx context.Context, s LinkSubmission) (string, error)
	SubmitImage(ctx context.Context, s ImageSubmission) (string, error)
	SubmitPoll(ctx context.Context, s PollSubmission) (string, error)

	// SelectFlair applies a flair by display text to an existing post.
	SelectFlair(ctx context.Context, postID, text string) error

	// Search finds posts matching query, ordered by relevance.
	Search(ctx context.Context, query string, limit int) ([]Post, error)
}

// PermalinkFor builds the canonical URL of a post.
func PermalinkFor(community, postID string) string {
	return "https://www.reddit.com/r/" + community + "/comments/" + postID
}
