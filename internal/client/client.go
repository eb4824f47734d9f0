// Package client reads the aggregated job list from the server endpoint and
// falls back to aggregating in-process when that endpoint is not reachable.
// Both paths end in the same feed.Aggregator; only the transport differs.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed"
)

// Mode says which path produced a result.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

const maxResponseBytes = 32 << 20

// ErrNoFallback is returned when the endpoint is unavailable and no local
// aggregator was configured.
var ErrNoFallback = errors.New("jobs endpoint unavailable and no local fallback")

// unavailableError marks endpoint failures that justify the local path.
type unavailableError struct {
	status int
	err    error
}

func (e *unavailableError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("jobs endpoint: HTTP %d", e.status)
	}
	return "jobs endpoint: " + e.err.Error()
}

func (e *unavailableError) Unwrap() error { return e.err }

// APIError is a non-fallback error answer from the endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jobs endpoint: HTTP %d", e.Status)
	}
	return fmt.Sprintf("jobs endpoint: HTTP %d: %s", e.Status, e.Message)
}

type Client struct {
	Endpoint string
	HTTP     feed.Doer        // http.DefaultClient if nil
	Local    *feed.Aggregator // runs when Endpoint is unavailable; may be nil
	Timeout  time.Duration    // for the endpoint call; 0 means none
	Log      *slog.Logger
}

// Jobs returns the job list and where it came from. A transport error, a 404
// or a 5xx from the endpoint, or a body that is not a jobs document switch to
// the local aggregator. Other 4xx answers are returned as *APIError.
func (c *Client) Jobs(ctx context.Context) ([]domain.Job, Mode, error) {
	jobs, err := c.remote(ctx)
	if err == nil {
		return jobs, ModeRemote, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	var ue *unavailableError
	if !errors.As(err, &ue) {
		return nil, "", err
	}
	if c.Local == nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNoFallback, err)
	}

	c.log().Warn("jobs endpoint unavailable, aggregating locally",
		slog.String("endpoint", c.Endpoint),
		slog.Any("err", err),
	)
	jobs, err = c.Local.Aggregate(ctx)
	if err != nil {
		return nil, "", err
	}
	return jobs, ModeLocal, nil
}

func (c *Client) remote(ctx context.Context) ([]domain.Job, error) {
	if c.Endpoint == "" {
		return nil, &unavailableError{err: errors.New("no endpoint configured")}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, &unavailableError{err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &unavailableError{err: err}
	}

	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode >= 500:
		return nil, &unavailableError{status: res.StatusCode}
	case res.StatusCode < 200 || res.StatusCode > 299:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return nil, &APIError{Status: res.StatusCode, Message: e.Error}
	}

	// a dev server without the endpoint tends to answer with its index page
	var out struct {
		Data []domain.Job `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &unavailableError{err: fmt.Errorf("decode: %w", err)}
	}
	if out.Data == nil {
		return nil, &unavailableError{err: errors.New("response has no data array")}
	}
	return out.Data, nil
}

func (c *Client) log() *slog.Logger {
	if c.Log == nil {
		return slog.Default()
	}
	return c.Log
}
