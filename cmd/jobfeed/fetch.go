package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"jobfeed-engine/internal/client"
	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/domain"
)

type fetchOutput struct {
	Mode client.Mode  `json:"mode"`
	Data []domain.Job `json:"data"`
}

// fetch asks the running engine for the job list and aggregates in-process
// when it is not reachable.
func fetch(ctx context.Context, cfg config.Config, log *slog.Logger, out io.Writer) error {
	agg, err := newAggregator(cfg, log)
	if err != nil {
		return err
	}

	c := &client.Client{
		Endpoint: cfg.Client.Endpoint,
		HTTP:     &http.Client{},
		Local:    agg,
		Timeout:  time.Duration(cfg.Feed.TimeoutSeconds+2) * time.Second,
		Log:      log,
	}
	jobs, mode, err := c.Jobs(ctx)
	if err != nil {
		return fmt.Errorf("fetch jobs: %w", err)
	}
	log.Info("fetched jobs", slog.String("mode", string(mode)), slog.Int("total", len(jobs)))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(fetchOutput{Mode: mode, Data: jobs})
}
