// Package agent answers free-text prompts by dispatching the parsed intent
// to the publishing pipeline.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/abdulachik/subposter/internal/command"
	"github.com/abdulachik/subposter/internal/composer"
	"github.com/abdulachik/subposter/internal/export"
	"github.com/abdulachik/subposter/internal/logtrail"
	"github.com/abdulachik/subposter/internal/metrics"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/post"
	"github.com/abdulachik/subposter/internal/scheduler"
	"github.com/abdulachik/subposter/internal/search"
)

// Publisher connects and publishes.
type Publisher interface {
	Connection(ctx context.Context) (platform.Connection, error)
	Publish(ctx context.Context, c post.Candidate) []string
}

// Searcher finds and summarizes posts.
type Searcher interface {
	Search(ctx context.Context, conn platform.Connection, topic, community string, limit int) []search.Result
}

// Drafter writes generated posts.
type Drafter interface {
	Draft(ctx context.Context, conn platform.Connection, community, topic string) composer.Draft
}

// Scheduler owns the repeating publish task.
type Scheduler interface {
	Replace(t scheduler.Task) error
}

// Config holds the agent's collaborators.
type Config struct {
	Publisher Publisher
	Searcher  Searcher
	Drafter   Drafter
	Scheduler Scheduler
	Exporter  export.Exporter
	Trail     *logtrail.Trail

	// Logger receives the agent's own events. It should feed Trail so they
	// show up in responses.
	Logger *slog.Logger
}

// Request is one prompt plus the context a caller may attach to it.
type Request struct {
	Prompt string

	// PriorResults are the results of an earlier search, used by
	// "reply to all with".
	PriorResults []search.Result

	// URL and ImagePath turn a "post to" text post into a link or image
	// post.
	URL       string
	ImagePath string
}

// Response is the structured answer to a prompt. Logs is always set.
// PostIDs is set only for publish intents.
type Response struct {
	RequestID    string          `json:"request_id"`
	Message      string          `json:"message"`
	Results      []search.Result `json:"results,omitempty"`
	Draft        *composer.Draft `json:"draft,omitempty"`
	PostIDs      []string        `json:"-"`
	DownloadFile string          `json:"download_file,omitempty"`
	Logs         []string        `json:"logs"`
	Instructions string          `json:"instructions,omitempty"`
}

// MarshalJSON emits post_ids only when PostIDs is non-nil, so publish
// intents carry the key even when nothing was published.
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	out := struct {
		plain
		PostIDs *[]string `json:"post_ids,omitempty"`
	}{plain: plain(r)}
	if r.PostIDs != nil {
		ids := r.PostIDs
		out.PostIDs = &ids
	}
	return json.Marshal(out)
}

// Agent handles prompts.
type Agent struct {
	publisher Publisher
	searcher  Searcher
	drafter   Drafter
	scheduler Scheduler
	exporter  export.Exporter
	trail     *logtrail.Trail
	logger    *slog.Logger
}

// New creates an agent.
func New(cfg Config) *Agent {
	trail := cfg.Trail
	if trail == nil {
		trail = logtrail.New(0)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(trail.Handler(slog.Default().Handler()))
	}

	return &Agent{
		publisher: cfg.Publisher,
		searcher:  cfg.Searcher,
		drafter:   cfg.Drafter,
		scheduler: cfg.Scheduler,
		exporter:  cfg.Exporter,
		trail:     trail,
		logger:    logger,
	}
}

// Trail returns the log trail attached to responses.
func (a *Agent) Trail() *logtrail.Trail {
	return a.trail
}

// HandlePrompt parses req.Prompt and runs the resulting intent. Pipeline
// failures are reported in the response message; only a cancelled context
// is returned as an error.
func (a *Agent) HandlePrompt(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("handle prompt: %w", err)
	}

	res := &Response{RequestID: uuid.NewString()}
	log := a.logger.With("request_id", res.RequestID)

	intent := command.Parse(req.Prompt)
	metrics.Commands.WithLabelValues(intent.Name()).Inc()
	log.Debug("parsed prompt", "intent", intent.Name())

	switch in := intent.(type) {
	case command.Search:
		a.search(ctx, log, in, res)
	case command.Reply:
		a.reply(ctx, log, in, req.PriorResults, res)
	case command.GeneratePreview:
		a.preview(ctx, in, res)
	case command.PublishGenerated:
		a.publish(ctx, in.Candidate(), res)
	case command.Publish:
		a.publish(ctx, withAttachments(in.Candidate(), req), res)
	case command.Schedule:
		a.schedule(log, in, res)
	case command.Unknown:
		log.Info("unrecognized prompt", "message", in.Message)
		res.Message = in.Message
	default:
		res.Message = "Invalid prompt"
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("handle prompt: %w", err)
	}

	res.Logs = a.trail.Lines()
	return res, nil
}

// connection returns nil when connecting fails; every consumer degrades on
// a nil connection.
func (a *Agent) connection(ctx context.Context, log *slog.Logger) platform.Connection {
	conn, err := a.publisher.Connection(ctx)
	if err != nil {
		log.Error("failed to connect", "error", err)
		return nil
	}
	return conn
}

func (a *Agent) search(ctx context.Context, log *slog.Logger, in command.Search, res *Response) {
	conn := a.connection(ctx, log)
	if conn == nil {
		res.Results = []search.Result{}
	} else {
		res.Results = a.searcher.Search(ctx, conn, in.Topic, in.Community, in.Limit)
	}

	res.Message = "Search results"
	res.Instructions = searchInstructions

	if a.exporter == nil {
		return
	}
	file, err := a.exporter.Export(res.Results)
	if err != nil {
		log.Error("failed to export search results", "error", err)
		return
	}
	log.Info("exported search results", "file", file, "count", len(res.Results))
	res.DownloadFile = file
}

func (a *Agent) reply(ctx context.Context, log *slog.Logger, in command.Reply, prior []search.Result, res *Response) {
	if in.PostID == "" && len(prior) == 0 {
		res.Message = "No search results or post ID provided"
		return
	}

	conn := a.connection(ctx, log)

	if in.PostID != "" {
		if a.replyTo(ctx, log, conn, in.PostID, in.Text) {
			res.Message = "Reply posted"
		} else {
			res.Message = "Reply failed"
		}
		return
	}

	successes := 0
	for _, r := range prior {
		if a.replyTo(ctx, log, conn, r.PostID, in.Text) {
			successes++
		}
	}
	res.Message = fmt.Sprintf("Replied to %d posts", successes)
}

func (a *Agent) replyTo(ctx context.Context, log *slog.Logger, conn platform.Connection, postID, text string) bool {
	if conn == nil {
		return false
	}

	commentID, err := conn.Reply(ctx, postID, text)
	if err != nil {
		log.Error("reply failed", "post_id", postID, "error", err)
		return false
	}

	log.Info("replied to post", "post_id", postID, "comment_id", commentID)
	return true
}

func (a *Agent) preview(ctx context.Context, in command.GeneratePreview, res *Response) {
	conn, err := a.publisher.Connection(ctx)
	if err != nil {
		a.logger.Warn("drafting without a connection", "error", err)
	}

	d := a.drafter.Draft(ctx, conn, in.Community, in.Topic)
	res.Message = "Generated post preview"
	res.Draft = &d
	res.Instructions = previewInstructions(d.Community, d.Title, d.Text)
}

func (a *Agent) publish(ctx context.Context, c post.Candidate, res *Response) {
	res.PostIDs = a.publisher.Publish(ctx, c)
	if res.PostIDs == nil {
		res.PostIDs = []string{}
	}
	if len(res.PostIDs) > 0 {
		res.Message = "Post created"
	} else {
		res.Message = "Post failed"
	}
}

// withAttachments applies the request's image or URL to a text post.
func withAttachments(c post.Candidate, req Request) post.Candidate {
	if c.Kind != post.KindText {
		return c
	}

	switch {
	case req.ImagePath != "":
		c.Kind = post.KindImage
		c.ImagePath = req.ImagePath
	case req.URL != "":
		c.Kind = post.KindLink
		c.URL = req.URL
	}
	return c
}

func (a *Agent) schedule(log *slog.Logger, in command.Schedule, res *Response) {
	err := a.scheduler.Replace(scheduler.Task{
		Delay:     in.Delay(),
		Community: in.Community,
		Topic:     in.Topic,
	})
	if err != nil {
		log.Error("failed to schedule posts", "error", err)
		res.Message = "Schedule failed: " + err.Error()
		return
	}

	minutes := strconv.FormatFloat(in.DelayMinutes, 'f', -1, 64)
	if in.Generated() {
		res.Message = fmt.Sprintf("Scheduled generated posts every %s minutes for r/%s about %s", minutes, in.Community, in.Topic)
	} else {
		res.Message = fmt.Sprintf("Scheduled posts every %s minutes", minutes)
	}
	log.Info(res.Message)
}
