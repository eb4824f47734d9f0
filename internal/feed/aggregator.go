// Package feed fetches the configured upstream job feeds concurrently,
// normalizes each into domain.Job and merges them into one deduplicated list.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"

	"golang.org/x/sync/errgroup"
)

// ErrAggregation is returned when something escapes per-source isolation.
// Per-source failures never produce it.
var ErrAggregation = errors.New("aggregation failed")

// Fetcher retrieves one raw feed body. *Client is the production Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string, token string) (json.RawMessage, error)
}

// Normalizer maps one raw feed body to canonical jobs. It must not fail on
// missing or oddly typed fields.
type Normalizer func(source string, body json.RawMessage, fb util.Fallback) []domain.Job

// Source is one configured upstream. Slice order is dedupe priority.
type Source struct {
	Name      string
	Kind      string
	URL       string
	Token     string
	Fallback  util.Fallback
	Normalize Normalizer
}

type SourceOutcome struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	URL        string `json:"url"`
	Records    int    `json:"records"`
	Status     int    `json:"status,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (o SourceOutcome) OK() bool { return o.Error == "" }

// Report describes one aggregation call.
type Report struct {
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Total      int             `json:"total"`
	Sources    []SourceOutcome `json:"sources"`
	Cancelled  bool            `json:"cancelled,omitempty"`
}

// Failed counts sources that contributed nothing because of an error.
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if !s.OK() {
			n++
		}
	}
	return n
}

type Aggregator struct {
	fetcher Fetcher
	sources []Source
	log     *slog.Logger

	mu   sync.RWMutex
	last *Report
}

func New(fetcher Fetcher, sources []Source, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		fetcher: fetcher,
		sources: append([]Source(nil), sources...),
		log:     log.With(slog.String("component", "aggregator")),
	}
}

func (a *Aggregator) Sources() []Source {
	return append([]Source(nil), a.sources...)
}

// Last returns the report of the most recent completed call.
func (a *Aggregator) Last() (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Report{}, false
	}
	return *a.last, true
}

// Aggregate fetches every source concurrently and returns the merged,
// deduplicated jobs. Failing sources contribute nothing, so an empty result
// is still a success. If ctx is cancelled the call returns ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context) ([]domain.Job, error) {
	jobs, _, err := a.AggregateWithReport(ctx)
	return jobs, err
}

func (a *Aggregator) AggregateWithReport(ctx context.Context) (jobs []domain.Job, rep Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("aggregation defect", slog.Any("panic", r))
			jobs, err = nil, fmt.Errorf("%w: %v", ErrAggregation, r)
		}
	}()

	start := time.Now()
	rep = Report{StartedAt: start.UTC(), Sources: make([]SourceOutcome, len(a.sources))}
	slots := make([][]domain.Job, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			slots[i], rep.Sources[i] = a.runSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	rep.DurationMs = time.Since(start).Milliseconds()

	if cerr := ctx.Err(); cerr != nil {
		rep.Cancelled = true
		a.log.Debug("aggregation cancelled", slog.Any("err", cerr))
		return nil, rep, cerr
	}

	n := 0
	for _, s := range slots {
		n += len(s)
	}
	merged := make([]domain.Job, 0, n)
	for _, s := range slots {
		merged = append(merged, s...)
	}
	jobs = Dedupe(merged)
	rep.Total = len(jobs)

	a.mu.Lock()
	a.last = &rep
	a.mu.Unlock()

	a.log.Info("aggregated",
		slog.Int("jobs", rep.Total),
		slog.Int("sources", len(a.sources)),
		slog.Int("failed", rep.Failed()),
		slog.Int64("duration_ms", rep.DurationMs),
	)
	return jobs, rep, nil
}

// runSource isolates one upstream: errors and panics become an outcome with
// zero records.
func (a *Aggregator) runSource(ctx context.Context, src Source) (jobs []domain.Job, out SourceOutcome) {
	start := time.Now()
	out = SourceOutcome{Name: src.Name, Kind: src.Kind, URL: src.URL}
	log := a.log.With(slog.String("source", src.Name))

	defer func() {
		if r := recover(); r != nil {
			jobs = nil
			out.Records = 0
			out.Error = fmt.Sprintf("panic: %v", r)
			log.Error("source panicked", slog.Any("panic", r))
		}
		out.DurationMs = time.Since(start).Milliseconds()
	}()

	body, err := a.fetcher.Fetch(ctx, src.URL, src.Token)
	if err != nil {
		out.Error = err.Error()
		var fe *FetchError
		if errors.As(err, &fe) {
			out.Status = fe.Status
			out.TimedOut = fe.Timeout() && ctx.Err() == nil
		}
		if ctx.Err() != nil {
			log.Debug("fetch aborted", slog.Any("err", err))
		} else {
			log.Warn("fetch failed", slog.Any("err", err))
		}
		return nil, out
	}
	if ctx.Err() != nil {
		out.Error = ctx.Err().Error()
		return nil, out
	}

	if src.Normalize == nil {
		out.Error = fmt.Sprintf("no normalizer for kind %q", src.Kind)
		log.Error("misconfigured source", slog.String("kind", src.Kind))
		return nil, out
	}
	jobs = src.Normalize(src.Name, body, src.Fallback)
	out.Records = len(jobs)
	log.Debug("fetched", slog.Int("records", out.Records))
	return jobs, out
}
