// Package backlog provides a minimal Backlog API v2 client covering the
// issue, comment, and wiki endpoints the bot needs.
package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 8 * time.Second

	// Backlog throttles aggressively per API key; stay well under the
	// documented per-minute ceiling.
	requestsPerSecond = 5
)

// Client is a Backlog API v2 client authenticated with an API key.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given Backlog space base URL, e.g.
// "https://example.backlog.com".
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backlog: base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backlog: invalid base URL %q: %w", baseURL, err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("backlog: API key is empty")
	}

	c := &Client{
		baseURL:    u,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured space base URL.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	return c.baseURL.String() + "/api/v2" + path + "?" + params.Encode()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "backlogbot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backlog: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backlog: GET %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backlog: GET %s: status %d: %s", path, resp.StatusCode, snippet(body))
	}
	return json.Unmarshal(body, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "backlogbot/1.0")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backlog: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backlog: POST %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backlog: POST %s: status %d: %s", path, resp.StatusCode, snippet(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// GetIssue fetches a single issue by id or key.
func (c *Client) GetIssue(ctx context.Context, issueIDOrKey string) (*Issue, error) {
	var issue Issue
	if err := c.getJSON(ctx, "/issues/"+url.PathEscape(issueIDOrKey), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListComments fetches up to count comments of an issue, newest first.
func (c *Client) ListComments(ctx context.Context, issueIDOrKey string, count int) ([]Comment, error) {
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))
	params.Set("order", "desc")

	var comments []Comment
	err := c.getJSON(ctx, "/issues/"+url.PathEscape(issueIDOrKey)+"/comments", params, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// PostComment adds a comment to an issue.
func (c *Client) PostComment(ctx context.Context, issueIDOrKey, content string) error {
	form := url.Values{}
	form.Set("content", content)

	err := c.postForm(ctx, "/issues/"+url.PathEscape(issueIDOrKey)+"/comments", form, nil)
	if err != nil {
		return err
	}
	log.Debug().Str("issue", issueIDOrKey).Int("bytes", len(content)).Msg("posted comment")
	return nil
}

// GetWiki fetches a wiki page by id.
func (c *Client) GetWiki(ctx context.Context, wikiID int64) (*Wiki, error) {
	var wiki Wiki
	if err := c.getJSON(ctx, "/wikis/"+strconv.FormatInt(wikiID, 10), nil, &wiki); err != nil {
		return nil, err
	}
	return &wiki, nil
}

// ListWikiAttachments fetches the attachment metadata of a wiki page.
func (c *Client) ListWikiAttachments(ctx context.Context, wikiID int64) ([]Attachment, error) {
	var attachments []Attachment
	err := c.getJSON(ctx, "/wikis/"+strconv.FormatInt(wikiID, 10)+"/attachments", nil, &attachments)
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
