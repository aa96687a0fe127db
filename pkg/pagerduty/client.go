// Package pagerduty is a read-only client for the slice of the PagerDuty
// REST API the audit needs: teams and services with embedded integrations.
// It paginates with limit/offset and honors 429 Retry-After throttling.
package pagerduty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkglog "github.com/opsrecon/alarm-audit/pkg/log"
	"github.com/opsrecon/alarm-audit/pkg/trace"
)

const (
	defaultBaseURL = "https://api.pagerduty.com"

	// acceptHeader pins API version 2 responses.
	acceptHeader = "application/vnd.pagerduty+json;version=2"

	// defaultPageLimit is the page size for offset pagination.
	defaultPageLimit = 100

	// defaultPageDelay is the pause between successive pages, to stay under
	// the platform rate limits even when not throttled.
	defaultPageDelay = 200 * time.Millisecond

	// defaultRetryAfter applies when a 429 carries no Retry-After header.
	defaultRetryAfter = 5 * time.Second
)

// Client represents a PagerDuty API client. It is read-only on the remote
// system and safe to share once constructed.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	token      string
	userAgent  string
	pageLimit  int
	pageDelay  time.Duration
	logger     *slog.Logger
}

// NewClient creates a new PagerDuty API client.
func NewClient(token, baseURL, userAgent string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("API token is required")
	}

	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   parsedURL,
		token:     token,
		userAgent: userAgent,
		pageLimit: defaultPageLimit,
		pageDelay: defaultPageDelay,
		logger:    slog.Default(),
	}, nil
}

// SetLogger sets the logger used for throttling and progress messages.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetPageDelay overrides the inter-page pause. Mostly useful in tests.
func (c *Client) SetPageDelay(d time.Duration) {
	c.pageDelay = d
}

// getPage GETs one API page and decodes it into v, retrying the same page
// after a rate-limit signal. The offset never advances on a 429, so no
// records are dropped or duplicated. Any other non-2xx status is an error.
func (c *Client) getPage(ctx context.Context, path string, query url.Values, v interface{}) error {
	for {
		resp, err := c.doGet(ctx, path, query)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			c.logger.Warn("rate limited by PagerDuty, retrying page", "path", path, "wait", wait)
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			continue
		}

		return parseResponse(resp, v)
	}
}

// doGet makes a single GET request. The token travels in the Authorization
// header, never in the URL, so transport errors cannot leak it.
func (c *Client) doGet(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	parsedPath, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse path: %w", err)
	}

	fullURL := c.baseURL.ResolveReference(parsedPath)
	fullURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Token token="+c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if tc := trace.FromContext(ctx); tc != nil {
		tc.InjectHTTPHeaders(req.Header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", fullURL.String(), err)
	}

	return resp, nil
}

// parseResponse decodes the response body into v and closes the body.
// Status codes >= 400 become errors carrying a truncated body.
func parseResponse(resp *http.Response, v interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, pkglog.TruncateBodyDefault(string(body)))
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// retryAfter reads the Retry-After header (seconds), falling back to the
// default wait when absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

// sleepContext sleeps for d unless ctx is canceled first. Rate-limit waits
// are local to the calling goroutine.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
