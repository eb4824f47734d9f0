package feed

import "sync/atomic"

// Holder publishes the current Aggregator so a config reload can swap it
// while requests are in flight.
type Holder struct {
	p atomic.Pointer[Aggregator]
}

func NewHolder(a *Aggregator) *Holder {
	h := &Holder{}
	h.p.Store(a)
	return h
}

func (h *Holder) Load() *Aggregator { return h.p.Load() }

func (h *Holder) Store(a *Aggregator) { h.p.Store(a) }
