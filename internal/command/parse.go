package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/abdulachik/subposter/internal/post"
)

const defaultSearchLimit = 5

// matcher handles instructions containing its anchor phrase.
type matcher struct {
	anchor string
	match  func(s string) bool
	parse  func(s string) (Intent, error)
	errMsg string
}

var matchers = []matcher{
	{anchor: "generate post for", parse: parseGenerate, errMsg: "Invalid generate post format"},
	{anchor: "post generated for", parse: parsePostGenerated, errMsg: "Invalid post generated format"},
	{anchor: "search for", parse: parseSearch, errMsg: "Invalid search format"},
	{anchor: "reply to post", parse: parseReply, errMsg: "Invalid reply format"},
	{anchor: "reply to all with", parse: parseReplyAll, errMsg: "Invalid reply format"},
	{anchor: "schedule generated post for", parse: parseScheduleGenerated, errMsg: "Invalid schedule format"},
	{anchor: "schedule posts every", parse: parseSchedule, errMsg: "Invalid schedule format"},
	{
		anchor: "post to",
		match:  func(s string) bool { return strings.Contains(s, "options") },
		parse:  parsePoll,
		errMsg: "Invalid poll format",
	},
	{anchor: "post to", parse: parsePost, errMsg: "Invalid post format"},
}

// Parse interprets input. Matching is case-insensitive and extracted
// fields are lower-cased. Once an anchor phrase is found the instruction
// is committed to that kind; a malformed remainder yields Unknown.
func Parse(input string) Intent {
	s := strings.ToLower(strings.TrimSpace(input))

	for _, m := range matchers {
		if !strings.Contains(s, m.anchor) {
			continue
		}
		if m.match != nil && !m.match(s) {
			continue
		}

		intent, err := m.parse(s)
		if err != nil {
			return Unknown{Message: fmt.Sprintf("%s: %v", m.errMsg, err)}
		}
		return intent
	}

	return Unknown{Message: "Invalid prompt"}
}

// after returns the text following the first occurrence of anchor.
func after(s, anchor string) (string, error) {
	_, rest, ok := strings.Cut(s, anchor)
	if !ok {
		return "", fmt.Errorf("missing %q", strings.TrimSpace(anchor))
	}
	return strings.TrimSpace(rest), nil
}

// split cuts s around sep and requires both halves to be non-empty.
func split(s, sep string) (string, string, error) {
	before, rest, ok := strings.Cut(s, sep)
	if !ok {
		return "", "", fmt.Errorf("missing %q", strings.TrimSpace(sep))
	}
	before, rest = strings.TrimSpace(before), strings.TrimSpace(rest)
	if before == "" || rest == "" {
		return "", "", fmt.Errorf("empty field around %q", strings.TrimSpace(sep))
	}
	return before, rest, nil
}

func parseGenerate(s string) (Intent, error) {
	rest, err := after(s, "generate post for ")
	if err != nil {
		return nil, err
	}
	community, topic, err := split(rest, " about ")
	if err != nil {
		return nil, err
	}
	return GeneratePreview{Community: community, Topic: topic}, nil
}

func parsePostGenerated(s string) (Intent, error) {
	rest, err := after(s, "post generated for ")
	if err != nil {
		return nil, err
	}
	community, rest, err := split(rest, " with title ")
	if err != nil {
		return nil, err
	}
	title, body, err := split(rest, " text: ")
	if err != nil {
		return nil, err
	}
	return PublishGenerated{Community: community, Title: title, Body: body}, nil
}

func parseSearch(s string) (Intent, error) {
	rest, err := after(s, "search for ")
	if err != nil {
		return nil, err
	}

	limit := defaultSearchLimit
	if r, l, ok := strings.Cut(rest, " limit "); ok {
		rest = r
		n, err := strconv.Atoi(strings.TrimSpace(l))
		if err != nil {
			return nil, fmt.Errorf("limit %q is not a number", strings.TrimSpace(l))
		}
		if n <= 0 {
			return nil, fmt.Errorf("limit must be positive")
		}
		limit = n
	}

	topic, community := rest, "all"
	if t, c, ok := strings.Cut(rest, " in "); ok {
		topic, community = t, c
	}

	topic, community = strings.TrimSpace(topic), strings.TrimSpace(community)
	if topic == "" {
		return nil, fmt.Errorf("missing topic")
	}
	if community == "" {
		community = "all"
	}

	return Search{Topic: topic, Community: community, Limit: limit}, nil
}

func parseReply(s string) (Intent, error) {
	rest, err := after(s, "reply to post ")
	if err != nil {
		return nil, err
	}
	postID, text, err := split(rest, " with ")
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(postID, " \t") {
		return nil, fmt.Errorf("post id %q contains spaces", postID)
	}
	return Reply{PostID: postID, Text: text}, nil
}

func parseReplyAll(s string) (Intent, error) {
	text, err := after(s, "reply to all with ")
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("missing reply text")
	}
	return Reply{Text: text}, nil
}

func parseScheduleGenerated(s string) (Intent, error) {
	rest, err := after(s, "schedule generated post for ")
	if err != nil {
		return nil, err
	}
	target, delayPart, err := split(rest, " every ")
	if err != nil {
		return nil, err
	}
	community, topic, err := split(target, " about ")
	if err != nil {
		return nil, err
	}
	delay, err := parseMinutes(delayPart)
	if err != nil {
		return nil, err
	}
	return Schedule{DelayMinutes: delay, Community: community, Topic: topic}, nil
}

func parseSchedule(s string) (Intent, error) {
	rest, err := after(s, "every")
	if err != nil {
		return nil, err
	}
	delay, err := parseMinutes(rest)
	if err != nil {
		return nil, err
	}
	return Schedule{DelayMinutes: delay}, nil
}

// MinDelayMinutes is the shortest schedule interval accepted.
const MinDelayMinutes = 1

// parseMinutes reads the number preceding "minute" in "30 minutes".
func parseMinutes(s string) (float64, error) {
	num, _, _ := strings.Cut(s, "minute")
	delay, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || math.IsNaN(delay) || math.IsInf(delay, 0) {
		return 0, fmt.Errorf("delay %q is not a number", strings.TrimSpace(num))
	}
	if delay < MinDelayMinutes {
		return 0, fmt.Errorf("delay must be at least %d minute", MinDelayMinutes)
	}
	return delay, nil
}

func parsePoll(s string) (Intent, error) {
	community, err := communityOf(s)
	if err != nil {
		return nil, err
	}
	rest, err := after(s, "title ")
	if err != nil {
		return nil, err
	}
	title, rest, err := split(rest, " options ")
	if err != nil {
		return nil, err
	}
	rawOptions, rawDuration, err := split(rest, " duration ")
	if err != nil {
		return nil, err
	}

	options := lo.Filter(lo.Map(strings.Split(rawOptions, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}), func(o string, _ int) bool { return o != "" })
	if len(options) < 2 {
		return nil, fmt.Errorf("a poll needs at least two options")
	}

	duration, err := strconv.Atoi(rawDuration)
	if err != nil {
		return nil, fmt.Errorf("duration %q is not a number", rawDuration)
	}

	return Publish{
		Community:    community,
		Kind:         post.KindPoll,
		Title:        title,
		PollOptions:  options,
		PollDuration: duration,
	}, nil
}

func parsePost(s string) (Intent, error) {
	community, err := communityOf(s)
	if err != nil {
		return nil, err
	}
	rest, err := after(s, "title ")
	if err != nil {
		return nil, err
	}

	if !strings.Contains(rest, " text: ") {
		if title, url, err := split(rest, " url: "); err == nil {
			return Publish{Community: community, Kind: post.KindLink, Title: title, URL: url}, nil
		}
	}

	title, body, err := split(rest, " text: ")
	if err != nil {
		return nil, err
	}
	return Publish{Community: community, Kind: post.KindText, Title: title, Body: body}, nil
}

func communityOf(s string) (string, error) {
	rest, err := after(s, "post to ")
	if err != nil {
		return "", err
	}
	community, _, ok := strings.Cut(rest, " with ")
	community = strings.TrimSpace(community)
	if !ok || community == "" {
		return "", fmt.Errorf("missing community")
	}
	return community, nil
}
