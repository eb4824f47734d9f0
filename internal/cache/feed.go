package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobfeed-engine/internal/domain"
)

type entry struct {
	CachedAt time.Time    `json:"cached_at"`
	Data     []domain.Job `json:"data"`
}

// Feed stores one aggregated job list under a fixed key. A nil *Feed is a
// cache that never hits.
type Feed struct {
	store Store
	key   string
	ttl   time.Duration
}

func NewFeed(store Store, key string, ttl time.Duration) *Feed {
	return &Feed{store: store, key: key, ttl: ttl}
}

// Load returns the cached list and when it was stored. ok is false on a miss.
// Unreadable entries count as a miss.
func (f *Feed) Load(ctx context.Context) (jobs []domain.Job, cachedAt time.Time, ok bool, err error) {
	if f == nil || f.store == nil {
		return nil, time.Time{}, false, nil
	}
	b, err := f.store.Get(ctx, f.key)
	if errors.Is(err, ErrMiss) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil || e.Data == nil {
		return nil, time.Time{}, false, nil
	}
	return e.Data, e.CachedAt, true, nil
}

func (f *Feed) Save(ctx context.Context, jobs []domain.Job) error {
	if f == nil || f.store == nil {
		return nil
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	b, err := json.Marshal(entry{CachedAt: time.Now().UTC(), Data: jobs})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return f.store.Set(ctx, f.key, b, f.ttl)
}

// Invalidate drops the stored list. Deleting a missing key is not an error.
func (f *Feed) Invalidate(ctx context.Context) error {
	if f == nil || f.store == nil {
		return nil
	}
	return f.store.Delete(ctx, f.key)
}

// TTL is the freshness window entries are stored with.
func (f *Feed) TTL() time.Duration {
	if f == nil {
		return 0
	}
	return f.ttl
}
