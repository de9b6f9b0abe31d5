package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdulachik/subposter/internal/platform"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		signals  Signals
		expected Policy
	}{
		{
			name:     "no signals yields default",
			signals:  Signals{},
			expected: Default(),
		},
		{
			name:     "link only community",
			signals:  Signals{SubmissionType: "LINK"},
			expected: Policy{TextPostsAllowed: false},
		},
		{
			name:     "self posts stay allowed",
			signals:  Signals{SubmissionType: "self"},
			expected: Default(),
		},
		{
			name: "promotion rule",
			signals: Signals{RuleTexts: []string{
				"Posts must be on topic. Be kind",
				"No self-promo of any kind. Spam",
			}},
			expected: Policy{RequiresDisclaimer: true, TextPostsAllowed: true},
		},
		{
			name:     "flair rule",
			signals:  Signals{RuleTexts: []string{"All posts MUST have a flair. Flair"}},
			expected: Policy{TagRequired: true, TextPostsAllowed: true},
		},
		{
			name:     "flair mention without requirement",
			signals:  Signals{RuleTexts: []string{"Flair is optional"}},
			expected: Default(),
		},
		{
			name: "first minimum length wins",
			signals: Signals{RuleTexts: []string{
				"Posts need a minimum of 100 characters",
				"Minimum 500 characters for self posts",
			}},
			expected: Policy{MinBodyLength: 100, TextPostsAllowed: true},
		},
		{
			name:     "minimum without number is ignored",
			signals:  Signals{RuleTexts: []string{"minimum effort posts will be removed"}},
			expected: Default(),
		},
		{
			name:     "number without minimum is ignored",
			signals:  Signals{RuleTexts: []string{"titles under 300 characters"}},
			expected: Default(),
		},
		{
			name: "flairs force tag and prefer vocabulary",
			signals: Signals{Flairs: []platform.FlairTemplate{
				{Text: "Meme", ID: "1"},
				{Text: " discussion ", ID: "2"},
			}},
			expected: Policy{TagRequired: true, DefaultTag: "discussion", TextPostsAllowed: true},
		},
		{
			name: "flairs without vocabulary match use first",
			signals: Signals{Flairs: []platform.FlairTemplate{
				{Text: "Meme", ID: "1"},
				{Text: "Rant", ID: "2"},
			}},
			expected: Policy{TagRequired: true, DefaultTag: "Meme", TextPostsAllowed: true},
		},
		{
			name: "everything at once",
			signals: Signals{
				SubmissionType: "link",
				RuleTexts:      []string{"No advertising. Minimum 40 characters."},
				Flairs:         []platform.FlairTemplate{{Text: "News"}},
			},
			expected: Policy{
				RequiresDisclaimer: true,
				TagRequired:        true,
				DefaultTag:         "News",
				MinBodyLength:      40,
				TextPostsAllowed:   false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Infer(tt.signals))
		})
	}
}

func TestInfer_MalformedInput(t *testing.T) {
	signals := Signals{
		SubmissionType: "\x00\xff",
		RuleTexts:      []string{"", "minimum 99999999999999999999999 characters", "\u202e"},
		Flairs:         []platform.FlairTemplate{{Text: "   "}},
	}

	p := Infer(signals)

	assert.True(t, p.TextPostsAllowed)
	assert.GreaterOrEqual(t, p.MinBodyLength, 0)
	assert.False(t, p.RequiresDisclaimer)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "startups", Normalize(" r/Startups "))
	assert.Equal(t, "golang", Normalize("golang"))
}
