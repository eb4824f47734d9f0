package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"jobfeed-engine/internal/cache"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed"
	"jobfeed-engine/internal/poll"
	"jobfeed-engine/internal/secrets"
)

const maxLimit = 1000

// JobsResponse is the body of GET /api/jobs.
type JobsResponse struct {
	Data []domain.Job `json:"data"`
}

// Refresher produces a fresh job list. *poll.Refresher implements it.
type Refresher interface {
	Refresh(ctx context.Context) ([]domain.Job, error)
	TryRefresh(ctx context.Context) error
	Status() poll.Status
}

type JobsHandler struct {
	Cache     *cache.Feed
	Refresher Refresher
	CfgVal    *atomic.Value // config.Config
	Log       *slog.Logger
}

// CacheControl renders the shared-cache directives for the jobs response.
func CacheControl(c config.FeedConfig) string {
	swr := "stale-while-revalidate"
	if c.StaleWhileRevalidateSeconds > 0 {
		swr = fmt.Sprintf("stale-while-revalidate=%d", c.StaleWhileRevalidateSeconds)
	}
	return fmt.Sprintf("s-maxage=%d, %s", c.SharedMaxAgeSeconds, swr)
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	jobs, hit, err := h.load(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			// the caller went away; there is nobody to answer
			h.Log.Debug("jobs request cancelled", slog.String("request_id", RequestIDFrom(r.Context())))
			return
		}
		h.Log.Error("aggregate jobs", slog.String("request_id", RequestIDFrom(r.Context())), slog.Any("err", err))
		WriteError(w, r, http.StatusInternalServerError, "aggregation_failed", "failed to aggregate jobs")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	w.Header().Set("Cache-Control", CacheControl(cfg.Feed))
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, JobsResponse{Data: filter.Apply(jobs)})
}

func (h JobsHandler) load(ctx context.Context) ([]domain.Job, bool, error) {
	jobs, _, ok, err := h.Cache.Load(ctx)
	if err != nil {
		h.Log.Warn("cache load failed", slog.Any("err", err))
	}
	if ok {
		return jobs, true, nil
	}
	jobs, err = h.Refresher.Refresh(ctx)
	return jobs, false, err
}

func parseFilter(q url.Values) (feed.Filter, error) {
	f := feed.Filter{
		Query:    strings.TrimSpace(q.Get("q")),
		Source:   strings.TrimSpace(q.Get("source")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Location: strings.TrimSpace(q.Get("location")),
	}
	if s := strings.TrimSpace(q.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return feed.Filter{}, fmt.Errorf("limit must be a non-negative integer")
		}
		f.Limit = min(n, maxLimit)
	}
	return f, nil
}

type sourceView struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	URL      string `json:"url"`
	Enabled  bool   `json:"enabled"`
	Fallback string `json:"identity_fallback"`
	HasToken bool   `json:"has_token"`
}

type sourcesResponse struct {
	Sources []sourceView `json:"sources"`
	Status  poll.Status  `json:"status"`
}

// Sources reports the configured feeds and the outcome of the last refresh.
func (h JobsHandler) Sources(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)

	out := sourcesResponse{Sources: make([]sourceView, 0, len(cfg.Sources)), Status: h.Refresher.Status()}
	for _, s := range cfg.Sources {
		fb := s.IdentityFallback
		if k, ok := feed.LookupKind(s.Kind); ok && fb == "" {
			fb = string(k.Fallback)
		}
		out.Sources = append(out.Sources, sourceView{
			Name:     s.Name,
			Kind:     s.Kind,
			URL:      s.URL,
			Enabled:  s.Enabled,
			Fallback: fb,
			HasToken: s.TokenAccount != "" && secrets.HasToken(s.TokenAccount),
		})
	}
	writeJSON(w, out)
}

// Refresh starts a background refresh, like the scheduled one.
func (h JobsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.Refresher.Status().Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	timeout := time.Duration(cfg.Feed.TimeoutSeconds)*time.Second + 5*time.Second

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := h.Refresher.TryRefresh(ctx); err != nil && !errors.Is(err, poll.ErrAlreadyRunning) {
			h.Log.Error("manual refresh failed", slog.Any("err", err))
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
