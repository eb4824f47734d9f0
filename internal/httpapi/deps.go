package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"jobfeed-engine/internal/auth"
	"jobfeed-engine/internal/cache"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/feed"
	"jobfeed-engine/internal/store"
)

// DocumentStore is the per-user document persistence the API needs.
// *store.DB implements it.
type DocumentStore interface {
	PutDocument(ctx context.Context, owner, collection, id string, body json.RawMessage) (store.Document, error)
	GetDocument(ctx context.Context, owner, collection, id string) (store.Document, error)
	DeleteDocument(ctx context.Context, owner, collection, id string) error
	ListDocuments(ctx context.Context, owner, collection string, opts store.DocumentListOpts) ([]store.Document, error)
}

type Deps struct {
	Log *slog.Logger
	Hub *events.Hub

	Aggregator *feed.Holder
	Refresher  Refresher
	Cache      *cache.Feed

	Documents DocumentStore
	Auth      auth.Authenticator

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
	// Reload applies a new config to the running services (sources, tokens).
	Reload func(config.Config) error

	StartedAt time.Time
}
