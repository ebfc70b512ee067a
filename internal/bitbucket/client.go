package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
)

const (
	apiBase  = "/rest/api/1.0"
	jiraBase = "/rest/jira/1.0"

	defaultTimeout        = 20 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = 250 * time.Millisecond
	defaultPageSize       = 25
)

// Options configures a Client. BaseURL is the only required field.
type Options struct {
	BaseURL        string        // Server root, e.g. "http://localhost:7990"
	Token          string        // Bearer token; takes precedence over basic credentials
	Username       string        // Basic-auth username
	Password       string        // Basic-auth password
	Timeout        time.Duration // Per-request budget
	MaxRetries     int           // Extra attempts for idempotent requests; negative disables retries, zero selects the default
	InitialBackoff time.Duration // First retry delay; grows exponentially with jitter
	PageSize       int           // Page size requested from paginated endpoints
	Logger         *log.Logger   // Optional; retry attempts are traced at debug level
	HTTPClient     *http.Client  // Optional transport override, used by tests
}

// Client owns the HTTP conversation with one Bitbucket Server instance.
// It holds no per-call state and is safe for concurrent use; the only
// shared resource is the underlying connection pool.
type Client struct {
	baseURL        *url.URL
	token          string
	username       string
	password       string
	http           *http.Client
	maxRetries     int
	initialBackoff time.Duration
	pageSize       int
	logger         *log.Logger
}

// NewClient creates a client for the server at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL '%s': %w", opts.BaseURL, err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base URL '%s' must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	initialBackoff := opts.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = defaultInitialBackoff
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:        baseURL,
		token:          opts.Token,
		username:       opts.Username,
		password:       opts.Password,
		http:           httpClient,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		pageSize:       pageSize,
		logger:         opts.Logger,
	}, nil
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) get(ctx context.Context, apiPath string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, apiPath, query, nil, out, true)
}

func (c *Client) post(ctx context.Context, apiPath string, query url.Values, body, out any) error {
	return c.do(ctx, http.MethodPost, apiPath, query, body, out, false)
}

// do issues one logical request. Idempotent requests are retried on
// transient failures with a jittered exponential backoff; the backoff state
// lives on the stack, so concurrent calls never share retry schedules.
func (c *Client) do(ctx context.Context, method, apiPath string, query url.Values, body, out any, idempotent bool) error {
	// JoinPath keeps the pre-escaped segments of apiPath intact (it fills
	// RawPath), so escaped keys and slugs are not escaped a second time.
	requestURL := *c.baseURL.JoinPath(apiPath)
	if query != nil {
		requestURL.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body for %s: %w", apiPath, err)
		}
		payload = encoded
	}

	attempts := 1
	if idempotent {
		attempts = c.maxRetries + 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			// A Retry-After hint from the server overrides the schedule.
			if rateLimited, ok := lastErr.(*RateLimitedError); ok && rateLimited.RetryAfter > 0 {
				delay = rateLimited.RetryAfter
			}
			if c.logger != nil {
				c.logger.Debug("retrying request", "path", apiPath, "attempt", attempt, "delay", delay, "cause", lastErr)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return cancelled(ctx)
			}
		}

		lastErr = c.doOnce(ctx, method, &requestURL, apiPath, payload, out)
		if lastErr == nil {
			return nil
		}
		if _, ok := lastErr.(*CancelledError); ok {
			return lastErr
		}
		if !isTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method string, requestURL *url.URL, apiPath string, payload []byte, out any) error {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reqBody)
	if err != nil {
		return &TransportError{URL: requestURL.String(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return &TransportError{URL: requestURL.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		return &TransportError{URL: requestURL.String(), Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if raw, ok := out.(*[]byte); ok {
			*raw = respBody
			return nil
		}
		if len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return rawDecodeError(apiPath, err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Path: apiPath}
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Path: apiPath}
	case resp.StatusCode == http.StatusConflict:
		return &VersionConflictError{Path: apiPath, Body: string(respBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitedError{Path: apiPath, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Path: apiPath, Body: string(respBody)}
	}
}

func (c *Client) applyAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// parseRetryAfter accepts both forms of the Retry-After header: a delay in
// seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
