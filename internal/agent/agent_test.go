package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/adapter"
	"github.com/abdulachik/subposter/internal/composer"
	"github.com/abdulachik/subposter/internal/export"
	"github.com/abdulachik/subposter/internal/flair"
	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/logtrail"
	"github.com/abdulachik/subposter/internal/platform"
	"github.com/abdulachik/subposter/internal/platform/platformtest"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/publisher"
	"github.com/abdulachik/subposter/internal/scheduler"
	"github.com/abdulachik/subposter/internal/search"
	"github.com/abdulachik/subposter/internal/textgen"
)

type fakeScheduler struct {
	tasks []scheduler.Task
	err   error
}

func (f *fakeScheduler) Replace(t scheduler.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, t)
	return nil
}

type fixture struct {
	fake      *platformtest.Fake
	scheduler *fakeScheduler
	exportDir string
	agent     *Agent
}

func noSleep(context.Context, time.Duration) error { return nil }

func newFixture(t *testing.T, gen textgen.Generator) *fixture {
	t.Helper()

	pool, err := identity.NewPool([]identity.Identity{{Username: "alice"}, {Username: "bob"}})
	require.NoError(t, err)

	f := &fixture{
		fake:      platformtest.New(),
		scheduler: &fakeScheduler{},
		exportDir: t.TempDir(),
	}

	policies := policy.NewStore(nil)
	engine := publisher.New(publisher.Config{
		Client:   f.fake,
		Pool:     pool,
		Policies: policies,
		Adjuster: adapter.New(gen, adapter.Config{}),
		Resolver: flair.New(flair.Config{}),
		Sleep:    noSleep,
	})

	trail := logtrail.New(0)
	f.agent = New(Config{
		Publisher: engine,
		Searcher:  search.New(gen),
		Drafter:   composer.New(composer.Config{Generator: gen, Policies: policies, Sleep: noSleep}),
		Scheduler: f.scheduler,
		Exporter:  export.NewCSV(f.exportDir),
		Trail:     trail,
		Logger:    slog.New(trail.Handler(nil)),
	})

	return f
}

func staticGenerator(text string) textgen.Generator {
	return textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
		return text, nil
	})
}

func handle(t *testing.T, a *Agent, req Request) *Response {
	t.Helper()
	res, err := a.HandlePrompt(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotNil(t, res.Logs)
	assert.NotEmpty(t, res.RequestID)
	return res
}

func TestHandlePrompt_Search(t *testing.T) {
	f := newFixture(t, staticGenerator("a summary"))
	f.fake.Communities["startups"] = &platformtest.CommunityData{Posts: []platform.Post{
		{ID: "p1", Title: "Agents", Body: "body", URL: "https://x/1", Community: "startups"},
		{ID: "p2", Title: "Bots", Body: "body", URL: "https://x/2", Community: "startups"},
	}}

	res := handle(t, f.agent, Request{Prompt: "search for ai agents in startups limit 3"})

	assert.Equal(t, "Search results", res.Message)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "a summary", res.Results[0].Summary)
	assert.Nil(t, res.PostIDs)
	assert.Contains(t, res.Instructions, "reply to post <Post ID>")

	require.NotEmpty(t, res.DownloadFile)
	_, err := os.Stat(res.DownloadFile)
	assert.NoError(t, err)
}

func TestHandlePrompt_SearchConnectFailure(t *testing.T) {
	f := newFixture(t, staticGenerator("a summary"))
	f.fake.ConnectErr["alice"] = errors.New("bad credentials")

	res := handle(t, f.agent, Request{Prompt: "search for golang"})
	assert.Equal(t, "Search results", res.Message)
	assert.Empty(t, res.Results)
	assert.NotEmpty(t, res.Logs)
}

func TestHandlePrompt_ReplyToPost(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "reply to post abc123 with thanks!"})
	assert.Equal(t, "Reply posted", res.Message)
	require.Len(t, f.fake.Replies, 1)
	assert.Equal(t, platformtest.Reply{Username: "alice", PostID: "abc123", Text: "thanks!"}, f.fake.Replies[0])

	f.fake.ReplyErr["dead"] = errors.New("archived")
	res = handle(t, f.agent, Request{Prompt: "reply to post dead with hi"})
	assert.Equal(t, "Reply failed", res.Message)
}

func TestHandlePrompt_ReplyToAll(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.ReplyErr["p2"] = errors.New("locked")

	res := handle(t, f.agent, Request{
		Prompt:       "reply to all with great post",
		PriorResults: []search.Result{{PostID: "p1"}, {PostID: "p2"}, {PostID: "p3"}},
	})
	assert.Equal(t, "Replied to 2 posts", res.Message)
	assert.Len(t, f.fake.Replies, 2)

	res = handle(t, f.agent, Request{Prompt: "reply to all with great post"})
	assert.Equal(t, "No search results or post ID provided", res.Message)
}

func TestHandlePrompt_GeneratePreview(t *testing.T) {
	f := newFixture(t, staticGenerator("```json\n{\"title\": \"Go tips\", \"text\": \"Use gofmt.\"}\n```"))

	res := handle(t, f.agent, Request{Prompt: "generate post for golang about tooling"})
	assert.Equal(t, "Generated post preview", res.Message)
	require.NotNil(t, res.Draft)
	assert.Equal(t, composer.Draft{Title: "Go tips", Text: "Use gofmt.", Community: "golang"}, *res.Draft)
	assert.Contains(t, res.Instructions, "'post generated for golang with title Go tips text: Use gofmt.'")
	assert.Zero(t, f.fake.SubmissionCount())
}

func TestHandlePrompt_PublishGenerated(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "post generated for golang with title go tips text: use gofmt"})
	assert.Equal(t, "Post created", res.Message)
	assert.Equal(t, []string{"post1"}, res.PostIDs)

	sub, ok := f.fake.LastSubmission()
	require.True(t, ok)
	assert.Equal(t, "text", sub.Kind)
	assert.Equal(t, "go tips", sub.Title)
	assert.Equal(t, "use gofmt", sub.Body)
}

func TestHandlePrompt_Publish(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "post to golang with title hello text: world"})
	assert.Equal(t, "Post created", res.Message)
	assert.Equal(t, []string{"post1"}, res.PostIDs)
}

func TestHandlePrompt_PublishWithAttachments(t *testing.T) {
	f := newFixture(t, nil)

	handle(t, f.agent, Request{Prompt: "post to golang with title look text: here", URL: "https://go.dev"})
	sub, _ := f.fake.LastSubmission()
	assert.Equal(t, "link", sub.Kind)
	assert.Equal(t, "https://go.dev", sub.URL)

	handle(t, f.agent, Request{Prompt: "post to golang with title look text: here", ImagePath: "/tmp/gopher.png"})
	sub, _ = f.fake.LastSubmission()
	assert.Equal(t, "image", sub.Kind)
	assert.Equal(t, "/tmp/gopher.png", sub.ImagePath)
}

func TestHandlePrompt_PublishFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.FailSubmissions()

	res := handle(t, f.agent, Request{Prompt: "post to golang with title hello text: world"})
	assert.Equal(t, "Post failed", res.Message)
	assert.NotNil(t, res.PostIDs)
	assert.Empty(t, res.PostIDs)
}

func TestHandlePrompt_Poll(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "post to golang with poll title best release options 1.21, 1.22 duration 3"})
	assert.Equal(t, "Post created", res.Message)

	sub, _ := f.fake.LastSubmission()
	assert.Equal(t, "poll", sub.Kind)
	assert.Equal(t, []string{"1.21", "1.22"}, sub.Options)
	assert.Equal(t, 3, sub.Duration)
}

func TestHandlePrompt_Schedule(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "schedule posts every 30 minutes"})
	assert.Equal(t, "Scheduled posts every 30 minutes", res.Message)
	assert.Nil(t, res.PostIDs)

	res = handle(t, f.agent, Request{Prompt: "schedule generated post for golang about generics every 1.5 minutes"})
	assert.Equal(t, "Scheduled generated posts every 1.5 minutes for r/golang about generics", res.Message)

	require.Len(t, f.scheduler.tasks, 2)
	assert.Equal(t, scheduler.Task{Delay: 30 * time.Minute}, f.scheduler.tasks[0])
	assert.Equal(t, scheduler.Task{Delay: 90 * time.Second, Community: "golang", Topic: "generics"}, f.scheduler.tasks[1])

	f.scheduler.err = errors.New("no queue")
	res = handle(t, f.agent, Request{Prompt: "schedule posts every 5 minutes"})
	assert.Equal(t, "Schedule failed: no queue", res.Message)
}

func TestHandlePrompt_Unknown(t *testing.T) {
	f := newFixture(t, nil)

	res := handle(t, f.agent, Request{Prompt: "banana"})
	assert.Equal(t, "Invalid prompt", res.Message)
	assert.Nil(t, res.PostIDs)
	assert.Empty(t, res.Results)

	res = handle(t, f.agent, Request{Prompt: "reply to post with nothing"})
	assert.Contains(t, res.Message, "Invalid reply format")
}

func TestHandlePrompt_LogsAccumulate(t *testing.T) {
	f := newFixture(t, nil)

	first := handle(t, f.agent, Request{Prompt: "banana"})
	second := handle(t, f.agent, Request{Prompt: "reply to post abc with hi"})
	assert.Greater(t, len(second.Logs), len(first.Logs))
	assert.Equal(t, f.agent.Trail().Lines(), second.Logs)
}

func TestHandlePrompt_CancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.agent.HandlePrompt(ctx, Request{Prompt: "banana"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResponse_PostIDsOnlyForPublish(t *testing.T) {
	f := newFixture(t, staticGenerator("a summary"))
	f.fake.Communities["startups"] = &platformtest.CommunityData{Posts: []platform.Post{
		{ID: "p1", Title: "Agents", Body: "body", URL: "https://x/1", Community: "startups"},
	}}

	keys := func(res *Response) map[string]json.RawMessage {
		t.Helper()
		data, err := json.Marshal(res)
		require.NoError(t, err)
		var out map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	for _, prompt := range []string{
		"search for ai agents in startups limit 3",
		"schedule posts every 30 minutes",
		"banana",
	} {
		out := keys(handle(t, f.agent, Request{Prompt: prompt}))
		assert.NotContains(t, out, "post_ids", prompt)
		assert.Contains(t, out, "logs", prompt)
		assert.Contains(t, out, "message", prompt)
	}

	out := keys(handle(t, f.agent, Request{Prompt: "post to golang with title hello text: world"}))
	assert.JSONEq(t, `["post1"]`, string(out["post_ids"]))

	f.fake.FailSubmissions()
	out = keys(handle(t, f.agent, Request{Prompt: "post to golang with title again text: world"}))
	assert.JSONEq(t, `[]`, string(out["post_ids"]))
}
