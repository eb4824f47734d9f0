package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobfeed-engine/internal/feed/util"
)

// DefaultTimeout bounds one upstream request.
const DefaultTimeout = 8 * time.Second

const maxBodyBytes = 10 << 20

var ErrMalformedJSON = errors.New("malformed json body")

// Doer performs one HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError describes why one upstream produced nothing. Status is zero
// when no response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of its own budget.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Client fetches raw JSON from feed endpoints. The zero value uses
// http.DefaultClient and DefaultTimeout without rate limiting.
type Client struct {
	HTTP      Doer
	Timeout   time.Duration
	Limiter   *util.HostLimiter
	UserAgent string
}

func NewClient(hc Doer, timeout time.Duration, limiter *util.HostLimiter, userAgent string) *Client {
	return &Client{HTTP: hc, Timeout: timeout, Limiter: limiter, UserAgent: userAgent}
}

// Fetch performs a single GET against url. token, when set, is sent as a
// bearer credential. There are no retries.
func (c *Client) Fetch(ctx context.Context, url string, token string) (json.RawMessage, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.Limiter.WaitURL(fctx, url); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &FetchError{URL: url, Status: res.StatusCode, Err: fmt.Errorf("unexpected status %s", res.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	if !json.Valid(body) {
		return nil, &FetchError{URL: url, Err: ErrMalformedJSON}
	}
	return json.RawMessage(body), nil
}
