package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"jobfeed-engine/internal/cache"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/feed"
	"jobfeed-engine/internal/httpapi"
	"jobfeed-engine/internal/logger"
	"jobfeed-engine/internal/poll"
	"jobfeed-engine/internal/store"

	"github.com/gofrs/flock"
)

type app struct {
	dataDir     string
	userCfgPath string
	cfg         config.Config
	log         *logger.Logger
}

func serve(ctx context.Context, stop context.CancelFunc, a app) error {
	cfg := a.cfg
	log := a.log.Logger

	// one engine per data dir; two would race on the sqlite file and config
	lock := flock.New(filepath.Join(a.dataDir, "jobfeed.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another jobfeed instance is using %s", a.dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	db, err := store.Open(ctx, filepath.Join(a.dataDir, cfg.Store.Path))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	var feedCache *cache.Feed
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		feedCache = cache.NewFeed(cache.NewRedis(rdb), cfg.Cache.Key, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		log.Info("response cache enabled", slog.String("key", cfg.Cache.Key), slog.Int("ttl_sec", cfg.Cache.TTLSeconds))
	}

	aggLog := a.log.Component("feed")
	agg, err := newAggregator(cfg, aggLog)
	if err != nil {
		return err
	}
	holder := feed.NewHolder(agg)
	hub := events.NewHub()
	refresher := poll.NewRefresher(holder, feedCache, hub, log)

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	reload := sourceReloader(ctx, holder, refresher, aggLog, log)

	deps := httpapi.Deps{
		Log:         log,
		Hub:         hub,
		Aggregator:  holder,
		Refresher:   refresher,
		Cache:       feedCache,
		Documents:   db,
		CfgVal:      &cfgVal,
		UserCfgPath: a.userCfgPath,
		LoadCfg:     func() (config.Config, error) { return readConfig(a.userCfgPath) },
		Reload:      reload,
		StartedAt:   time.Now(),
	}

	token, err := shutdownToken(a.dataDir)
	if err != nil {
		return err
	}
	root := http.NewServeMux()
	root.Handle("/", httpapi.Handler(deps))
	root.Handle("/shutdown", shutdownHandler(token, stop))

	var poller *poll.Poller
	if cfg.Poll.Enabled {
		timeout := time.Duration(cfg.Feed.TimeoutSeconds+5) * time.Second
		poller = poll.NewPoller(cfg.Poll.Spec, refresher, timeout, log)
		if err := poller.Start(ctx); err != nil {
			return err
		}
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	// SSE streams never go idle on their own; end them when shutdown starts
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           root,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	srv.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !isClosed(err) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info("engine listening",
		slog.String("addr", "http://"+addr),
		slog.String("config", a.userCfgPath),
		slog.Int("sources", len(agg.Sources())),
		slog.Int("pid", os.Getpid()),
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("shutting down")
	if poller != nil {
		poller.Stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("server forced to shutdown", slog.Any("err", err))
		return err
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	log.Info("shutdown complete")
	return nil
}

// sourceReloader swaps in an aggregator for the new config, drops the list
// cached from the old sources and refreshes it in the background.
func sourceReloader(ctx context.Context, holder *feed.Holder, refresher *poll.Refresher, aggLog, log *slog.Logger) func(config.Config) error {
	return func(c config.Config) error {
		next, err := newAggregator(c, aggLog)
		if err != nil {
			return err
		}
		holder.Store(next)
		if err := refresher.Invalidate(ctx); err != nil {
			log.Warn("cache invalidate failed", slog.Any("err", err))
		}
		log.Info("sources reloaded", slog.Int("sources", len(next.Sources())))

		timeout := time.Duration(c.Feed.TimeoutSeconds+5) * time.Second
		go func() {
			rctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := refresher.TryRefresh(rctx); err != nil && !errors.Is(err, poll.ErrAlreadyRunning) {
				log.Warn("refresh after reload failed", slog.Any("err", err))
			}
		}()
		return nil
	}
}
