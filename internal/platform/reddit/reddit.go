// Package reddit implements platform.Client against the Reddit OAuth API.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/platform"
)

const (
	defaultAuthURL   = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultUserAgent = "subposter:v1.0.0"

	// Reddit allows 100 requests per minute per OAuth client.
	defaultRequestsPerSecond = 1.5
	defaultBurst             = 5
)

// Config holds configuration for the Reddit client.
type Config struct {
	AuthURL           string
	APIURL            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client connects identities to Reddit. Connections are cached per username
// so tokens survive across publish calls.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	authURL string
	apiURL  string

	mu    sync.Mutex
	conns map[string]*Connection
}

// New creates a Reddit client.
func New(cfg Config) *Client {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		http:    resty.New().SetTimeout(timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		authURL: authURL,
		apiURL:  strings.TrimRight(apiURL, "/"),
		conns:   make(map[string]*Connection),
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Connect returns an authenticated connection for the identity.
func (c *Client) Connect(ctx context.Context, id identity.Identity) (platform.Connection, error) {
	c.mu.Lock()
	conn, ok := c.conns[id.Username]
	if !ok {
		conn = &Connection{client: c, id: id}
		c.conns[id.Username] = conn
	}
	c.mu.Unlock()

	if err := conn.ensureAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", id.Username, err)
	}

	return conn, nil
}

// Connection is an authenticated Reddit session.
type Connection struct {
	client *Client
	id     identity.Identity

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Username returns the account name.
func (c *Connection) Username() string {
	return c.id.Username
}

// Community returns a handle for a subreddit.
func (c *Connection) Community(name string) platform.Community {
	return &Community{conn: c, name: strings.TrimPrefix(name, "r/")}
}

func (c *Connection) userAgent() string {
	if c.id.UserAgent != "" {
		return c.id.UserAgent
	}
	return defaultUserAgent
}

func (c *Connection) ensureAccessToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	if err := c.client.limiter.Wait(ctx); err != nil {
		return err
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
	}

	res, err := c.client.http.R().
		WithContext(ctx).
		SetBasicAuth(c.id.ClientID, c.id.ClientSecret).
		SetHeader("User-Agent", c.userAgent()).
		SetFormData(map[string]string{
			"grant_type": "password",
			"username":   c.id.Username,
			"password":   c.id.Password,
		}).
		SetResult(&tokenResp).
		Post(c.client.authURL)
	if err != nil {
		return fmt.Errorf("request token: %w", err)
	}

	if res.IsError() {
		return fmt.Errorf("%w: auth failed (status %d): %s", platform.ErrUnexpectedResponse, res.StatusCode(), res.String())
	}

	if tokenResp.AccessToken == "" {
		return fmt.Errorf("%w: auth failed: %s", platform.ErrUnexpectedResponse, tokenResp.Error)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	slog.Debug("obtained Reddit access token",
		"username", c.id.Username,
		"expires_in", tokenResp.ExpiresIn,
	)

	return nil
}

// request returns an authorized request against the API host.
func (c *Connection) request(ctx context.Context) (*resty.Request, error) {
	if err := c.ensureAccessToken(ctx); err != nil {
		return nil, err
	}

	if err := c.client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()

	return c.client.http.R().
		WithContext(ctx).
		SetAuthToken(token).
		SetHeader("User-Agent", c.userAgent()), nil
}

func (c *Connection) url(path string) string {
	return c.client.apiURL + path
}

// Reply comments on a post.
func (c *Connection) Reply(ctx context.Context, postID, text string) (string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return "", err
	}

	var out apiResponse
	res, err := req.
		SetFormData(map[string]string{
			"api_type": "json",
			"thing_id": fullname(postID),
			"text":     text,
		}).
		SetResult(&out).
		Post(c.url("/api/comment"))
	if err != nil {
		return "", fmt.Errorf("send comment: %w", err)
	}

	if err := checkResponse(res, out); err != nil {
		return "", err
	}

	if len(out.JSON.Data.Things) == 0 {
		return "", fmt.Errorf("%w: comment created without id", platform.ErrUnexpectedResponse)
	}

	return out.JSON.Data.Things[0].Data.ID, nil
}

// fullname converts a bare post id into a t3_ thing name.
func fullname(postID string) string {
	if strings.HasPrefix(postID, "t3_") {
		return postID
	}
	return "t3_" + postID
}

// apiResponse is the envelope of api_type=json endpoints.
type apiResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			URL    string `json:"url"`
			Things []struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

func checkResponse(res *resty.Response, out apiResponse) error {
	if res.IsError() {
		return fmt.Errorf("%w: status %d: %s", platform.ErrUnexpectedResponse, res.StatusCode(), truncate(res.String(), 300))
	}

	if len(out.JSON.Errors) > 0 {
		msgs := make([]string, 0, len(out.JSON.Errors))
		for _, e := range out.JSON.Errors {
			msgs = append(msgs, fmt.Sprint(e...))
		}
		return fmt.Errorf("%w: %s", platform.ErrUnexpectedResponse, strings.Join(msgs, "; "))
	}

	return nil
}

// truncate shortens a string to maxLen, adding ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
