// Package poll refreshes the cached job list, on demand and on a cron
// schedule, and reports the outcome of the last run.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"jobfeed-engine/internal/cache"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/feed"
)

var ErrAlreadyRunning = errors.New("refresh already running")

type Status struct {
	LastRunAt string       `json:"last_run_at"`
	LastOkAt  string       `json:"last_ok_at"`
	LastError string       `json:"last_error"`
	LastTotal int          `json:"last_total"`
	Running   bool         `json:"running"`
	Report    *feed.Report `json:"report,omitempty"`
}

// Refresher runs the aggregator and writes the result through the cache.
type Refresher struct {
	agg   *feed.Holder
	cache *cache.Feed
	hub   *events.Hub
	log   *slog.Logger

	running atomic.Bool
	gen     atomic.Uint64 // bumped by Invalidate

	mu     sync.Mutex
	status Status
}

func NewRefresher(agg *feed.Holder, c *cache.Feed, hub *events.Hub, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{agg: agg, cache: c, hub: hub, log: log.With(slog.String("component", "refresher"))}
}

// Status reports the last run. Running is true only while a TryRefresh is
// in flight.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Refresh aggregates now and stores the result in the cache. Concurrent
// calls each aggregate; see TryRefresh for the guarded variant.
func (r *Refresher) Refresh(ctx context.Context) ([]domain.Job, error) {
	gen := r.gen.Load()
	r.update(func(st *Status) {
		st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	})

	jobs, rep, err := r.agg.Load().AggregateWithReport(ctx)

	r.update(func(st *Status) {
		if err != nil {
			st.LastError = err.Error()
			return
		}
		st.LastError = ""
		st.LastOkAt = time.Now().UTC().Format(time.RFC3339)
		st.LastTotal = rep.Total
		st.Report = &rep
	})
	if err != nil {
		return nil, err
	}

	// a list built before Invalidate may come from the old sources
	if r.gen.Load() != gen {
		r.log.Info("sources changed during refresh, result not cached")
	} else if cerr := r.cache.Save(ctx, jobs); cerr != nil {
		r.log.Warn("cache save failed", slog.Any("err", cerr))
	}
	r.hub.Emit("", events.TypeFeedRefreshed, events.FeedRefreshed{
		Total:   rep.Total,
		Failed:  rep.Failed(),
		Sources: len(rep.Sources),
	})
	return jobs, nil
}

// TryRefresh is Refresh unless one started by TryRefresh is still running,
// in which case it returns ErrAlreadyRunning.
func (r *Refresher) TryRefresh(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	r.update(func(st *Status) { st.Running = true })
	defer func() {
		r.running.Store(false)
		r.update(func(st *Status) { st.Running = false })
	}()

	_, err := r.Refresh(ctx)
	return err
}

// Invalidate drops the cached list after the sources change. Refreshes
// already in flight finish but do not write their result to the cache.
func (r *Refresher) Invalidate(ctx context.Context) error {
	r.gen.Add(1)
	return r.cache.Invalidate(ctx)
}

func (r *Refresher) update(fn func(st *Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}
