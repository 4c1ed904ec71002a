// Package fetch retrieves raw CSV text for a report with a bounded retry
// budget. Google Sheets propagates published edits with a visible lag, so a
// response that is too short to contain data is treated as "not yet
// propagated" and retried like any transient failure.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "sheetcache/pkg/logx"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = 5 * time.Second
)

// ErrNotPropagated marks a response body with fewer than two lines: the feed
// exists but the source has not finished publishing yet.
var ErrNotPropagated = errors.New("csv empty or not yet propagated")

// Error is the terminal failure for one report fetch after retries.
type Error struct {
	URL      string
	Attempts int
	Status   int // last HTTP status, 0 when the request never completed
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %d attempts exhausted: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client fetches CSV feeds over HTTP.
type Client struct {
	http     *http.Client
	attempts int
	delay    time.Duration
	log      logx.Logger
}

type Options struct {
	Timeout  time.Duration // per attempt
	Attempts int
	Delay    time.Duration
}

func New(opts Options, log logx.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		attempts: opts.Attempts,
		delay:    opts.Delay,
		log:      log,
	}
}

// Fetch returns the raw CSV text at url, retrying transient failures.
// No partial state is written on failure; the caller decides what a failed
// report means for its cache.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var (
		body       string
		lastStatus int
		attempt    int
	)

	err := Do(ctx, Policy{Attempts: c.attempts, Delay: c.delay}, func(ctx context.Context) error {
		attempt++
		text, status, err := c.fetchOnce(ctx, url)
		lastStatus = status
		if err != nil {
			c.log.Warn("fetch attempt failed",
				logx.String("url", url),
				logx.Int("attempt", attempt),
				logx.Int("max_attempts", c.attempts),
				logx.Err(err),
			)
			return err
		}
		body = text
		return nil
	})
	if err != nil {
		return "", &Error{URL: url, Attempts: attempt, Status: lastStatus, Err: err}
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	// Sheets edge caches can serve a stale (pre-publish) body otherwise.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	text := string(b)
	if len(strings.Split(text, "\n")) < 2 {
		return "", resp.StatusCode, ErrNotPropagated
	}
	return text, resp.StatusCode, nil
}
