// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/platform"
)

// ErrSubmit is the default error returned by failing submissions.
var ErrSubmit = errors.New("simulated submission failure")

// CommunityData configures a fake community.
type CommunityData struct {
	SubmissionType    string
	SubmissionTypeErr error
	Rules             []platform.Rule
	RulesErr          error
	Flairs            []platform.FlairTemplate
	FlairsErr         error
	SelectFlairErr    error
	Posts             []platform.Post
	SearchErr         error
}

// Submission records one submit call.
type Submission struct {
	Username  string
	Community string
	Kind      string
	Title     string
	Body      string
	URL       string
	ImagePath string
	Options   []string
	Duration  int
	FlairID   string
}

// FlairSelection records one SelectFlair call.
type FlairSelection struct {
	PostID string
	Text   string
}

// Reply records one Reply call.
type Reply struct {
	Username string
	PostID   string
	Text     string
}

// Fake is an in-memory platform.Client.
type Fake struct {
	mu sync.Mutex

	Communities map[string]*CommunityData

	// ConnectErr fails Connect for the given usernames.
	ConnectErr map[string]error

	// SubmitHook runs before every submission; a non-nil error fails it.
	SubmitHook func(s Submission) error

	// ReplyErr fails replies to the given post IDs.
	ReplyErr map[string]error

	Connects        []string
	Submissions     []Submission
	FlairSelections []FlairSelection
	Replies         []Reply
	Searches        []string

	nextID int
}

// New creates an empty fake platform.
func New() *Fake {
	return &Fake{
		Communities: make(map[string]*CommunityData),
		ConnectErr:  make(map[string]error),
		ReplyErr:    make(map[string]error),
	}
}

// FailSubmissions makes every submission fail.
func (f *Fake) FailSubmissions() {
	f.SubmitHook = func(Submission) error { return ErrSubmit }
}

// Connect implements platform.Client.
func (f *Fake) Connect(_ context.Context, id identity.Identity) (platform.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Connects = append(f.Connects, id.Username)
	if err := f.ConnectErr[id.Username]; err != nil {
		return nil, err
	}
	return &conn{fake: f, username: id.Username}, nil
}

// SubmissionCount returns the number of successful submissions.
func (f *Fake) SubmissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submissions)
}

// LastSubmission returns the most recent successful submission.
func (f *Fake) LastSubmission() (Submission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Submissions) == 0 {
		return Submission{}, false
	}
	return f.Submissions[len(f.Submissions)-1], true
}

func (f *Fake) data(name string) *CommunityData {
	if d, ok := f.Communities[strings.ToLower(name)]; ok {
		return d
	}
	if d, ok := f.Communities[name]; ok {
		return d
	}
	return &CommunityData{SubmissionType: "any"}
}

func (f *Fake) submit(s Submission) (string, error) {
	f.mu.Lock()
	hook := f.SubmitHook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(s); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Submissions = append(f.Submissions, s)
	return fmt.Sprintf("post%d", f.nextID), nil
}

type conn struct {
	fake     *Fake
	username string
}

func (c *conn) Username() string { return c.username }

func (c *conn) Community(name string) platform.Community {
	return &community{fake: c.fake, conn: c, name: name}
}

func (c *conn) Reply(_ context.Context, postID, text string) (string, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()

	if err := c.fake.ReplyErr[postID]; err != nil {
		return "", err
	}
	c.fake.Replies = append(c.fake.Replies, Reply{Username: c.username, PostID: postID, Text: text})
	return fmt.Sprintf("comment%d", len(c.fake.Replies)), nil
}

type community struct {
	fake *Fake
	conn *conn
	name string
}

func (c *community) Name() string { return c.name }

func (c *community) SubmissionType(context.Context) (string, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	d := c.fake.data(c.name)
	return d.SubmissionType, d.SubmissionTypeErr
}

func (c *community) Rules(context.Context) ([]platform.Rule, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	d := c.fake.data(c.name)
	return d.Rules, d.RulesErr
}

func (c *community) FlairTemplates(context.Context) ([]platform.FlairTemplate, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	d := c.fake.data(c.name)
	return d.Flairs, d.FlairsErr
}

func (c *community) SubmitText(_ context.Context, s platform.TextSubmission) (string, error) {
	return c.fake.submit(Submission{
		Username: c.conn.username, Community: c.name, Kind: "text",
		Title: s.Title, Body: s.Body, FlairID: s.FlairID,
	})
}

func (c *community) SubmitLink(_ context.Context, s platform.LinkSubmission) (string, error) {
	return c.fake.submit(Submission{
		Username: c.conn.username, Community: c.name, Kind: "link",
		Title: s.Title, URL: s.URL, FlairID: s.FlairID,
	})
}

func (c *community) SubmitImage(_ context.Context, s platform.ImageSubmission) (string, error) {
	return c.fake.submit(Submission{
		Username: c.conn.username, Community: c.name, Kind: "image",
		Title: s.Title, ImagePath: s.ImagePath, FlairID: s.FlairID,
	})
}

func (c *community) SubmitPoll(_ context.Context, s platform.PollSubmission) (string, error) {
	return c.fake.submit(Submission{
		Username: c.conn.username, Community: c.name, Kind: "poll",
		Title: s.Title, Body: s.Body, Options: s.Options, Duration: s.Duration, FlairID: s.FlairID,
	})
}

func (c *community) SelectFlair(_ context.Context, postID, text string) error {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	d := c.fake.data(c.name)
	if d.SelectFlairErr != nil {
		return d.SelectFlairErr
	}
	c.fake.FlairSelections = append(c.fake.FlairSelections, FlairSelection{PostID: postID, Text: text})
	return nil
}

func (c *community) Search(_ context.Context, query string, limit int) ([]platform.Post, error) {
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	c.fake.Searches = append(c.fake.Searches, query)
	d := c.fake.data(c.name)
	if d.SearchErr != nil {
		return nil, d.SearchErr
	}
	posts := d.Posts
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}
