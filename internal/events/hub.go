// Package events fans server events out to SSE subscribers.
package events

import "sync"

const defaultBuffer = 16

// Hub broadcasts encoded events. Each subscriber has an owner ("" for an
// anonymous client); owner-scoped events reach only that owner's
// subscribers. Slow subscribers miss events rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]string
	buffer  int
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]string), buffer: defaultBuffer}
}

// Subscribe returns a receive channel for owner and a cancel func that
// unsubscribes and closes it. cancel is safe to call more than once.
func (h *Hub) Subscribe(owner string) (<-chan string, func()) {
	ch := make(chan string, h.buffer)
	h.mu.Lock()
	h.clients[ch] = owner
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends evt to every subscriber.
func (h *Hub) Publish(evt string) {
	h.deliver(evt, func(string) bool { return true })
}

// PublishTo sends evt only to subscribers of owner. An empty owner reaches
// nobody.
func (h *Hub) PublishTo(owner, evt string) {
	if owner == "" {
		return
	}
	h.deliver(evt, func(o string) bool { return o == owner })
}

func (h *Hub) deliver(evt string, match func(owner string) bool) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, owner := range h.clients {
		if !match(owner) {
			continue
		}
		select {
		case ch <- evt:
		default:
			h.dropped++
		}
	}
}

// Emit encodes and publishes one event to everyone.
func (h *Hub) Emit(reqID, typ string, data any) {
	if h == nil {
		return
	}
	h.Publish(MakeEvent(reqID, typ, 1, data))
}

// EmitTo encodes and publishes one event to owner's subscribers only.
func (h *Hub) EmitTo(owner, reqID, typ string, data any) {
	if h == nil || owner == "" {
		return
	}
	h.PublishTo(owner, MakeEvent(reqID, typ, 1, data))
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts deliveries skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
