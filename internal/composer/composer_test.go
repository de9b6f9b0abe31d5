package composer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/textgen"
)

func noSleep(calls *int) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*calls++
		return nil
	}
}

func TestComposer_Draft(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		var prompt string
		gen := textgen.GeneratorFunc(func(_ context.Context, p string, maxTokens int) (string, error) {
			prompt = p
			assert.Equal(t, 1000, maxTokens)
			return "```json\n{\"title\": \"AI Agents?\", \"text\": \"Body text\"}\n```", nil
		})
		c := New(Config{Generator: gen, Policies: policy.NewStore(policy.Seeds())})

		d := c.Draft(context.Background(), nil, "r/Startups", "ai agents")

		assert.Equal(t, Draft{Title: "AI Agents?", Text: "Body text", Community: "startups"}, d)
		assert.Contains(t, prompt, "r/startups about 'ai agents'")
		assert.Contains(t, prompt, "at least 250 chars")
	})

	t.Run("raw json after retry", func(t *testing.T) {
		calls, sleeps := 0, 0
		gen := textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
			calls++
			if calls == 1 {
				return "Sorry, here is text without json", nil
			}
			return `{"title": "T", "text": "B"}`, nil
		})
		c := New(Config{Generator: gen, Sleep: noSleep(&sleeps)})

		d := c.Draft(context.Background(), nil, "test", "go")

		assert.Equal(t, "T", d.Title)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, sleeps)
	})

	t.Run("fallback after three failures", func(t *testing.T) {
		calls, sleeps := 0, 0
		gen := textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
			calls++
			return "", errors.New("rate limited")
		})
		c := New(Config{Generator: gen, Sleep: noSleep(&sleeps)})

		d := c.Draft(context.Background(), nil, "test", "ai agents")

		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, sleeps)
		assert.Equal(t, Fallback("test", "ai agents"), d)
		assert.Equal(t, "ai agents Insights? (i will not promote)", d.Title)
		assert.Contains(t, d.Text, "Exploring ai agents in test.")
		assert.Contains(t, d.Text, "80% of customer support")
	})

	t.Run("missing fields count as failure", func(t *testing.T) {
		gen := textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
			return `{"title": "only a title"}`, nil
		})
		sleeps := 0
		d := New(Config{Generator: gen, Sleep: noSleep(&sleeps)}).Draft(context.Background(), nil, "test", "x")
		assert.Equal(t, Fallback("test", "x"), d)
	})

	t.Run("nil generator", func(t *testing.T) {
		d := New(Config{}).Draft(context.Background(), nil, "test", "x")
		assert.Equal(t, Fallback("test", "x"), d)
	})

	t.Run("cancelled while pausing", func(t *testing.T) {
		calls := 0
		gen := textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
			calls++
			return "", errors.New("down")
		})
		c := New(Config{Generator: gen, Sleep: func(context.Context, time.Duration) error { return context.Canceled }})
		d := c.Draft(context.Background(), nil, "test", "x")
		assert.Equal(t, 1, calls)
		assert.Equal(t, Fallback("test", "x"), d)
	})
}

func TestParseDraft(t *testing.T) {
	d, err := parseDraft("Here:\n```json\n{\"title\": \" T \", \"text\": \" B \"}\n```")
	require.NoError(t, err)
	assert.Equal(t, Draft{Title: "T", Text: "B"}, d)

	_, err = parseDraft("```json\n{not json}\n```")
	assert.Error(t, err)
}
