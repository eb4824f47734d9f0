package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"jobfeed-engine/internal/auth"
	"jobfeed-engine/internal/events"
)

type EventsHandler struct {
	Hub       *events.Hub
	Heartbeat time.Duration // default 25s
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}

	// the server write timeout is meant for ordinary responses
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// anonymous streams get broadcast events only
	owner := ""
	if p := auth.Current(r.Context()); p != nil {
		owner = p.ID
	}
	ch, cancel := h.Hub.Subscribe(owner)
	defer cancel()

	reqID := RequestIDFrom(r.Context())
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", events.MakeEvent(reqID, events.TypePing, 1, nil))
	flusher.Flush()

	beat := h.Heartbeat
	if beat <= 0 {
		beat = 25 * time.Second
	}
	t := time.NewTicker(beat)
	defer t.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
			// comment line; keeps proxies from closing an idle stream
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
