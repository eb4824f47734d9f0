package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller keeps the cache warm by refreshing on a cron spec.
type Poller struct {
	cron    *cron.Cron
	spec    string
	r       *Refresher
	log     *slog.Logger
	timeout time.Duration
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller schedules r on spec (e.g. "@every 5m"). Each run is bounded by
// timeout.
func NewPoller(spec string, r *Refresher, timeout time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Poller{
		cron:    cron.New(),
		spec:    spec,
		r:       r,
		log:     log.With(slog.String("component", "poller")),
		timeout: timeout,
	}
}

// Start registers the job, starts the scheduler and runs one refresh
// immediately so the cache is warm before the first tick.
func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	if _, err := p.cron.AddFunc(p.spec, func() { p.RunOnce(ctx) }); err != nil {
		p.cancel()
		return fmt.Errorf("cron.AddFunc(%q): %w", p.spec, err)
	}

	p.cron.Start()
	p.log.Info("poller started", slog.String("spec", p.spec))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunOnce(ctx)
	}()
	return nil
}

// Stop cancels an in-flight refresh and waits for it to return.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.cron.Stop().Done()
	p.wg.Wait()
	p.log.Info("poller stopped")
}

func (p *Poller) RunOnce(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.r.TryRefresh(rctx)
	switch {
	case err == nil:
		p.log.Debug("refresh complete", slog.Int("total", p.r.Status().LastTotal))
	case errors.Is(err, ErrAlreadyRunning):
		p.log.Debug("refresh skipped, previous run still in progress")
	case errors.Is(err, context.Canceled):
		p.log.Debug("refresh cancelled")
	default:
		p.log.Error("refresh failed", slog.Any("err", err))
	}
}
