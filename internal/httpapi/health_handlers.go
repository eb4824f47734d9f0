package httpapi

import (
	"net/http"
	"time"

	"jobfeed-engine/internal/feed"
)

type HealthHandler struct {
	Aggregator *feed.Holder
	StartedAt  time.Time
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sources := 0
	if a := h.Aggregator.Load(); a != nil {
		sources = len(a.Sources())
	}
	writeJSON(w, map[string]any{
		"ok":         true,
		"sources":    sources,
		"uptime_sec": int64(time.Since(h.StartedAt).Seconds()),
	})
}
