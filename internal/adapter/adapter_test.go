package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/post"
	"github.com/abdulachik/subposter/internal/textgen"
)

func failingGenerator() textgen.Generator {
	return textgen.GeneratorFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("quota exceeded")
	})
}

func fixedGenerator(text string, prompts *[]string) textgen.Generator {
	return textgen.GeneratorFunc(func(_ context.Context, prompt string, maxTokens int) (string, error) {
		if prompts != nil {
			*prompts = append(*prompts, prompt)
		}
		return text, nil
	})
}

func TestAdjust_Disclaimer(t *testing.T) {
	a := New(nil, Config{})
	p := policy.Policy{RequiresDisclaimer: true, TextPostsAllowed: true}

	t.Run("appended when missing", func(t *testing.T) {
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "AI agents"}, p)
		assert.Equal(t, "AI agents (i will not promote)", out.Title)
	})

	t.Run("kept when present in any case", func(t *testing.T) {
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "AI agents (I Will Not Promote)"}, p)
		assert.Equal(t, "AI agents (I Will Not Promote)", out.Title)
	})

	t.Run("never duplicated", func(t *testing.T) {
		c := post.Candidate{Community: "startups", Kind: post.KindText, Title: "Hello"}
		once := a.Adjust(context.Background(), c, p)
		twice := a.Adjust(context.Background(), once, p)
		assert.Equal(t, 1, strings.Count(strings.ToLower(twice.Title), "i will not promote"))
	})

	t.Run("not added when not required", func(t *testing.T) {
		out := a.Adjust(context.Background(), post.Candidate{Community: "test", Kind: post.KindText, Title: "Hello"}, policy.Default())
		assert.Equal(t, "Hello", out.Title)
	})
}

func TestAdjust_Downgrade(t *testing.T) {
	p := policy.Policy{TextPostsAllowed: false, MinBodyLength: 500}

	t.Run("default url", func(t *testing.T) {
		var prompts []string
		a := New(fixedGenerator("unused", &prompts), Config{})

		out := a.Adjust(context.Background(), post.Candidate{Community: "technology", Kind: post.KindText, Title: "T", Body: "short"}, p)

		assert.Equal(t, post.KindLink, out.Kind)
		assert.Equal(t, DefaultURL, out.URL)
		assert.Empty(t, out.Body)
		assert.Empty(t, prompts, "downgraded posts skip extension")
	})

	t.Run("supplied url kept", func(t *testing.T) {
		a := New(nil, Config{})
		out := a.Adjust(context.Background(), post.Candidate{Community: "technology", Kind: post.KindText, Title: "T", URL: "https://go.dev"}, p)
		assert.Equal(t, "https://go.dev", out.URL)
	})

	t.Run("configured default url", func(t *testing.T) {
		a := New(nil, Config{DefaultURL: "https://example.com"})
		out := a.Adjust(context.Background(), post.Candidate{Community: "technology", Kind: post.KindText, Title: "T"}, p)
		assert.Equal(t, "https://example.com", out.URL)
	})

	t.Run("non text kinds untouched", func(t *testing.T) {
		a := New(nil, Config{})
		c := post.Candidate{Community: "technology", Kind: post.KindPoll, Title: "T", PollOptions: []string{"a", "b"}}
		assert.Equal(t, c, a.Adjust(context.Background(), c, p))
	})
}

func TestAdjust_Length(t *testing.T) {
	p := policy.Policy{MinBodyLength: 250, TextPostsAllowed: true}
	body := strings.Repeat("x", 50)

	t.Run("generator failure falls back to filler", func(t *testing.T) {
		a := New(failingGenerator(), Config{})
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "T", Body: body}, p)

		assert.GreaterOrEqual(t, utf8.RuneCountInString(out.Body), 250)
		assert.Equal(t, 250, utf8.RuneCountInString(out.Body))
		assert.True(t, strings.HasPrefix(out.Body, body+" "))
		assert.Contains(t, out.Body, "This post has been extended to meet the minimum length requirement.")
	})

	t.Run("empty generator output falls back to filler", func(t *testing.T) {
		a := New(fixedGenerator("   ", nil), Config{})
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "T", Body: body}, p)
		assert.Equal(t, 250, utf8.RuneCountInString(out.Body))
	})

	t.Run("generated text replaces body", func(t *testing.T) {
		var prompts []string
		long := strings.Repeat("generated ", 30)
		a := New(fixedGenerator(long, &prompts), Config{})

		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "T", Body: body}, p)

		assert.Equal(t, strings.TrimSpace(long), out.Body)
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "at least 250 characters")
		assert.Contains(t, prompts[0], "r/startups")
		assert.Contains(t, prompts[0], body)
	})

	t.Run("short generated text is topped up", func(t *testing.T) {
		a := New(fixedGenerator("a bit longer but still short", nil), Config{})
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "T", Body: body}, p)

		assert.Equal(t, 250, utf8.RuneCountInString(out.Body))
		assert.True(t, strings.HasPrefix(out.Body, "a bit longer but still short "))
	})

	t.Run("long enough body untouched", func(t *testing.T) {
		var prompts []string
		a := New(fixedGenerator("x", &prompts), Config{})
		long := strings.Repeat("y", 300)
		out := a.Adjust(context.Background(), post.Candidate{Community: "startups", Kind: post.KindText, Title: "T", Body: long}, p)
		assert.Equal(t, long, out.Body)
		assert.Empty(t, prompts)
	})
}

func TestAdjust_IdempotentOnCompliantCandidate(t *testing.T) {
	seeds := policy.Seeds()
	a := New(failingGenerator(), Config{})

	candidates := []post.Candidate{
		{Community: "startups", Kind: post.KindText, Title: "Hi (i will not promote)", Body: strings.Repeat("z", 260)},
		{Community: "technology", Kind: post.KindLink, Title: "News (i will not promote)", URL: "https://go.dev"},
		{Community: "test", Kind: post.KindText, Title: "plain", Body: "b"},
	}

	for _, c := range candidates {
		t.Run(c.Community, func(t *testing.T) {
			p := seeds[c.Community]
			assert.Equal(t, c, a.Adjust(context.Background(), c, p))
		})
	}

	t.Run("adjusting twice is stable", func(t *testing.T) {
		c := post.Candidate{Community: "startups", Kind: post.KindText, Title: "New", Body: "tiny"}
		once := a.Adjust(context.Background(), c, seeds["startups"])
		assert.Equal(t, once, a.Adjust(context.Background(), once, seeds["startups"]))
	})
}

func TestPad(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		minLen int
	}{
		{"empty body", "", 10},
		{"one short", "abcd", 5},
		{"multi rune", "héllo wörld", 200},
		{"long shortfall", "x", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Pad(tt.body, tt.minLen)
			assert.Equal(t, tt.minLen, utf8.RuneCountInString(out))
			assert.True(t, strings.HasPrefix(out, tt.body))
		})
	}

	assert.Equal(t, "already long", Pad("already long", 3))
}
