package reddit

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/abdulachik/subposter/internal/platform"
)

// Community is a subreddit handle bound to a connection.
type Community struct {
	conn *Connection
	name string
}

// Name returns the subreddit name.
func (c *Community) Name() string {
	return c.name
}

func (c *Community) path(suffix string) string {
	return c.conn.url("/r/" + c.name + suffix)
}

// SubmissionType returns "any", "self" or "link".
func (c *Community) SubmissionType(ctx context.Context) (string, error) {
	req, err := c.conn.request(ctx)
	if err != nil {
		return "", err
	}

	var about struct {
		Data struct {
			SubmissionType string `json:"submission_type"`
		} `json:"data"`
	}

	res, err := req.SetResult(&about).Get(c.path("/about"))
	if err != nil {
		return "", fmt.Errorf("fetch about: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("%w: about r/%s (status %d)", platform.ErrUnexpectedResponse, c.name, res.StatusCode())
	}

	return about.Data.SubmissionType, nil
}

// Rules lists the subreddit rules.
func (c *Community) Rules(ctx context.Context) ([]platform.Rule, error) {
	req, err := c.conn.request(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Rules []platform.Rule `json:"rules"`
	}

	res, err := req.SetResult(&body).Get(c.path("/about/rules"))
	if err != nil {
		return nil, fmt.Errorf("fetch rules: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: rules r/%s (status %d)", platform.ErrUnexpectedResponse, c.name, res.StatusCode())
	}

	return body.Rules, nil
}

// linkFlair is one entry of the link_flair_v2 listing.
type linkFlair struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	ModOnly bool   `json:"mod_only"`
}

// FlairTemplates lists flairs users may select themselves.
func (c *Community) FlairTemplates(ctx context.Context) ([]platform.FlairTemplate, error) {
	req, err := c.conn.request(ctx)
	if err != nil {
		return nil, err
	}

	var flairs []linkFlair
	res, err := req.SetResult(&flairs).Get(c.path("/api/link_flair_v2"))
	if err != nil {
		return nil, fmt.Errorf("fetch flairs: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: flairs r/%s (status %d)", platform.ErrUnexpectedResponse, c.name, res.StatusCode())
	}

	selectable := lo.Filter(flairs, func(f linkFlair, _ int) bool {
		return !f.ModOnly
	})

	return lo.Map(selectable, func(f linkFlair, _ int) platform.FlairTemplate {
		return platform.FlairTemplate{Text: strings.TrimSpace(f.Text), ID: f.ID}
	}), nil
}

func (c *Community) submit(ctx context.Context, form map[string]string) (string, error) {
	req, err := c.conn.request(ctx)
	if err != nil {
		return "", err
	}

	form["api_type"] = "json"
	form["sr"] = c.name
	form["resubmit"] = "true"
	form["sendreplies"] = "true"

	var out apiResponse
	res, err := req.SetFormData(form).SetResult(&out).Post(c.conn.url("/api/submit"))
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	if err := checkResponse(res, out); err != nil {
		return "", err
	}

	return postID(out), nil
}

// postID extracts the bare id from a submit response.
func postID(out apiResponse) string {
	if out.JSON.Data.ID != "" {
		return strings.TrimPrefix(out.JSON.Data.ID, "t3_")
	}
	return strings.TrimPrefix(out.JSON.Data.Name, "t3_")
}

func withFlair(form map[string]string, flairID string) map[string]string {
	if flairID != "" {
		form["flair_id"] = flairID
	}
	return form
}

// SubmitText creates a self post.
func (c *Community) SubmitText(ctx context.Context, s platform.TextSubmission) (string, error) {
	return c.submit(ctx, withFlair(map[string]string{
		"kind":  "self",
		"title": s.Title,
		"text":  s.Body,
	}, s.FlairID))
}

// SubmitLink creates a link post.
func (c *Community) SubmitLink(ctx context.Context, s platform.LinkSubmission) (string, error) {
	return c.submit(ctx, withFlair(map[string]string{
		"kind":  "link",
		"title": s.Title,
		"url":   s.URL,
	}, s.FlairID))
}

// SubmitImage uploads the image to Reddit's media store and submits it.
func (c *Community) SubmitImage(ctx context.Context, s platform.ImageSubmission) (string, error) {
	if s.ImagePath == "" {
		return "", fmt.Errorf("image post requires an image path")
	}

	mediaURL, err := c.uploadMedia(ctx, s.ImagePath)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	return c.submit(ctx, withFlair(map[string]string{
		"kind":  "image",
		"title": s.Title,
		"url":   mediaURL,
	}, s.FlairID))
}

// uploadLease is the response of the media asset endpoint.
type uploadLease struct {
	Args struct {
		Action string `json:"action"`
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	} `json:"args"`
}

func (c *Community) uploadMedia(ctx context.Context, path string) (string, error) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "image/png"
	}

	req, err := c.conn.request(ctx)
	if err != nil {
		return "", err
	}

	var lease uploadLease
	res, err := req.
		SetFormData(map[string]string{
			"filepath": filepath.Base(path),
			"mimetype": mimeType,
		}).
		SetResult(&lease).
		Post(c.conn.url("/api/media/asset.json"))
	if err != nil {
		return "", fmt.Errorf("request upload lease: %w", err)
	}
	if res.IsError() || lease.Args.Action == "" {
		return "", fmt.Errorf("%w: upload lease (status %d)", platform.ErrUnexpectedResponse, res.StatusCode())
	}

	action := lease.Args.Action
	if strings.HasPrefix(action, "//") {
		action = "https:" + action
	}

	fields := make(map[string]string, len(lease.Args.Fields))
	key := ""
	for _, f := range lease.Args.Fields {
		fields[f.Name] = f.Value
		if f.Name == "key" {
			key = f.Value
		}
	}

	up, err := c.conn.client.http.R().
		WithContext(ctx).
		SetMultipartFormData(fields).
		SetFile("file", path).
		Post(action)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if up.IsError() {
		return "", fmt.Errorf("%w: media upload (status %d)", platform.ErrUnexpectedResponse, up.StatusCode())
	}

	return action + "/" + key, nil
}

// SubmitPoll creates a poll post.
func (c *Community) SubmitPoll(ctx context.Context, s platform.PollSubmission) (string, error) {
	if len(s.Options) < 2 {
		return "", fmt.Errorf("poll requires at least two options, got %d", len(s.Options))
	}

	req, err := c.conn.request(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"sr":          c.name,
		"title":       s.Title,
		"text":        s.Body,
		"options":     s.Options,
		"duration":    s.Duration,
		"resubmit":    true,
		"sendreplies": true,
	}
	if s.FlairID != "" {
		body["flair_id"] = s.FlairID
	}

	var out apiResponse
	res, err := req.SetBody(body).SetResult(&out).Post(c.conn.url("/api/submit_poll_post.json"))
	if err != nil {
		return "", fmt.Errorf("submit poll: %w", err)
	}

	if err := checkResponse(res, out); err != nil {
		return "", err
	}

	return postID(out), nil
}

// SelectFlair applies a flair to a post by its display text.
func (c *Community) SelectFlair(ctx context.Context, postID, text string) error {
	req, err := c.conn.request(ctx)
	if err != nil {
		return err
	}

	var out apiResponse
	res, err := req.
		SetFormData(map[string]string{
			"api_type": "json",
			"link":     fullname(postID),
			"text":     text,
		}).
		SetResult(&out).
		Post(c.path("/api/selectflair"))
	if err != nil {
		return fmt.Errorf("select flair: %w", err)
	}

	return checkResponse(res, out)
}

// listing represents a Reddit API listing response.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				Selftext  string `json:"selftext"`
				URL       string `json:"url"`
				Subreddit string `json:"subreddit"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search runs a relevance-sorted, all-time search in the subreddit. The
// pseudo-subreddit "all" searches the whole site.
func (c *Community) Search(ctx context.Context, query string, limit int) ([]platform.Post, error) {
	req, err := c.conn.request(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"q":     query,
		"sort":  "relevance",
		"t":     "all",
		"limit": strconv.Itoa(limit),
	}
	if c.name != "all" {
		params["restrict_sr"] = "on"
	}

	var out listing
	res, err := req.SetQueryParams(params).SetResult(&out).Get(c.path("/search"))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: search r/%s (status %d)", platform.ErrUnexpectedResponse, c.name, res.StatusCode())
	}

	posts := make([]platform.Post, 0, len(out.Data.Children))
	for _, child := range out.Data.Children {
		p := child.Data
		posts = append(posts, platform.Post{
			ID:        p.ID,
			Title:     p.Title,
			Body:      p.Selftext,
			URL:       p.URL,
			Community: p.Subreddit,
		})
	}

	return posts, nil
}
