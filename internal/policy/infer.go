package policy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/abdulachik/subposter/internal/platform"
)

var (
	promoPhrases = []string{"no promotion", "no advertising", "no self-promo"}

	minLengthPattern = regexp.MustCompile(`(\d+)\s*characters?`)

	// preferredTags are picked as default tag when a community offers them.
	preferredTags = []string{
		"discussion", "feedback", "general", "news", "question",
		"software", "ai", "tech", "i will not promote",
	}
)

// Signals is everything inference looks at. A step whose fetch failed
// leaves its field zero.
type Signals struct {
	SubmissionType string
	RuleTexts      []string
	Flairs         []platform.FlairTemplate
}

// Infer derives a best-effort policy from community signals.
func Infer(s Signals) Policy {
	p := Default()

	if strings.Contains(strings.ToLower(s.SubmissionType), "link") {
		p.TextPostsAllowed = false
	}

	minFound := false
	for _, raw := range s.RuleTexts {
		text := strings.ToLower(raw)

		for _, phrase := range promoPhrases {
			if strings.Contains(text, phrase) {
				p.RequiresDisclaimer = true
				break
			}
		}

		if strings.Contains(text, "flair") && (strings.Contains(text, "required") || strings.Contains(text, "must")) {
			p.TagRequired = true
		}

		if !minFound && strings.Contains(text, "minimum") {
			if n, ok := parseMinLength(text); ok {
				p.MinBodyLength = n
				minFound = true
			}
		}
	}

	if len(s.Flairs) > 0 {
		p.TagRequired = true
		p.DefaultTag = pickDefaultTag(s.Flairs)
	}

	return p
}

func parseMinLength(text string) (int, bool) {
	m := minLengthPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func pickDefaultTag(flairs []platform.FlairTemplate) string {
	for _, f := range flairs {
		text := strings.ToLower(strings.TrimSpace(f.Text))
		for _, pref := range preferredTags {
			if text == pref {
				return strings.TrimSpace(f.Text)
			}
		}
	}
	return strings.TrimSpace(flairs[0].Text)
}
