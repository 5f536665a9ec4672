// Package fetch provides the rate-limited, retrying page client and the
// offset paginator that drives it.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/grantpull/internal/config"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// nextAccessTimeLayout matches the upstream throttle hint timestamp,
// e.g. "2025-Oct-31 00:00:00+0000 UTC".
const nextAccessTimeLayout = "2006-Jan-02 15:04:05-0700 MST"

// maxJitter bounds the random jitter added to computed backoff delays.
const maxJitter = 250 * time.Millisecond

// PageRequest describes one page fetch.
type PageRequest struct {
	URL    string
	Params url.Values
	Header http.Header
}

// Doer executes HTTP requests. Satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client fetches single pages with bounded throughput. Requests are strictly
// sequential; a caller that is too fast is delayed by the limiters, never
// rejected. All state is owned by the single run goroutine, so no locking.
type Client struct {
	cfg        config.FetchConfig
	httpClient Doer
	// window caps requests per rolling second; spacing enforces the minimum
	// inter-request interval.
	window  *rate.Limiter
	spacing *rate.Limiter
	log     logger.Interface
	sleep   func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithSleep overrides the sleep function. Used by tests to avoid real delays.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient creates a page client from fetch configuration.
func NewClient(cfg config.FetchConfig, log logger.Interface, opts ...Option) *Client {
	if cfg.MaxPerSecond <= 0 {
		cfg.MaxPerSecond = config.DefaultMaxPerSecond
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = config.DefaultMinInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = config.DefaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = config.DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = config.DefaultMaxBackoff
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		window:     rate.NewLimiter(rate.Limit(cfg.MaxPerSecond), cfg.MaxPerSecond),
		spacing:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		log:        log,
		sleep:      sleepWithContext,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// FetchPage fetches and decodes one page, retrying transient failures up to
// the configured budget. Permanent failures and malformed response shapes
// surface immediately. Budget exhaustion surfaces the last error, fatal for
// this page.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*RawPage, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.waitTurn(ctx); err != nil {
			return nil, err
		}

		page, fetchErr := c.doFetch(ctx, req)
		if fetchErr == nil {
			return page, nil
		}
		lastErr = fetchErr

		var fe *FetchError
		if !errors.As(fetchErr, &fe) || !fe.Retriable {
			return nil, fetchErr
		}

		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := c.backoff(attempt)
		if fe.RetryAfter > 0 {
			// Server told us exactly how long to wait. Honor it.
			delay = fe.RetryAfter
		}

		c.log.Warn("Page fetch failed, retrying",
			"url", req.URL,
			"attempt", attempt,
			"max_retries", c.cfg.MaxRetries,
			"status", fe.Status,
			"delay", delay.String(),
		)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, c.cfg.MaxRetries, lastErr)
}

// waitTurn blocks until both rate limiters allow the next request.
func (c *Client) waitTurn(ctx context.Context) error {
	if err := c.window.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	if err := c.spacing.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// doFetch executes a single request attempt and classifies the outcome.
func (c *Client) doFetch(ctx context.Context, req PageRequest) (*RawPage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Retriable: false, Err: err}
	}
	if req.Params != nil {
		httpReq.URL.RawQuery = req.Params.Encode()
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Transport errors (timeouts, resets) are transient.
		return nil, &FetchError{Retriable: true, Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &FetchError{Status: resp.StatusCode, Retriable: true, Err: readErr}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, classifyHTTPError(resp, body)
	}

	page, decodeErr := decodePage(body)
	if decodeErr != nil {
		// Unexpected shape: fail immediately, retrying will not help.
		return nil, &FetchError{Status: resp.StatusCode, Retriable: false, Err: decodeErr}
	}

	return page, nil
}

// classifyHTTPError maps an error status to a FetchError, extracting the
// server wait hint when one is present.
func classifyHTTPError(resp *http.Response, body []byte) *FetchError {
	retriable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError

	fe := &FetchError{
		Status:    resp.StatusCode,
		Retriable: retriable,
		Err:       fmt.Errorf("server returned %s", resp.Status),
	}
	if !retriable {
		return fe
	}

	fe.RetryAfter = waitHint(resp, body)
	return fe
}

// waitHint extracts a server wait hint from the Retry-After header or a
// throttle body carrying a nextAccessTime timestamp. Returns 0 when absent.
func waitHint(resp *http.Response, body []byte) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		var seconds int
		if _, err := fmt.Sscanf(ra, "%d", &seconds); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	var throttle struct {
		NextAccessTime string `json:"nextAccessTime"`
		NextAccess     string `json:"next_access_time"`
	}
	if err := json.Unmarshal(body, &throttle); err != nil {
		return 0
	}

	hint := throttle.NextAccessTime
	if hint == "" {
		hint = throttle.NextAccess
	}
	if hint == "" {
		return 0
	}

	next, err := time.Parse(nextAccessTimeLayout, hint)
	if err != nil {
		return 0
	}

	until := time.Until(next)
	if until < 0 {
		return 0
	}
	return until
}

// backoff computes base * 2^(attempt-1) plus jitter, capped.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseBackoff << (attempt - 1)
	if delay > c.cfg.MaxBackoff {
		delay = c.cfg.MaxBackoff
	}
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// sleepWithContext sleeps for the given duration or until ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
