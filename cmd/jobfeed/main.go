package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/feed"
	"jobfeed-engine/internal/logger"
	"jobfeed-engine/internal/secrets"

	"github.com/joho/godotenv"
)

const usage = `usage: jobfeed [flags] [serve|fetch]

  serve   run the HTTP API (default)
  fetch   print the job list, aggregating locally if the API is unreachable
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	fs := flag.NewFlagSet("jobfeed", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	dataDir := fs.String("data-dir", envOr("JOBFEED_DATA_DIR", "."), "directory for the user config, database and lock file")
	defaultCfg := fs.String("config", envOr("JOBFEED_CONFIG", filepath.Join("config", "config.yml")), "default config copied on first run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := "serve"
	if fs.NArg() > 0 {
		cmd = fs.Arg(0)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	userCfgPath, cfg, err := loadConfig(*dataDir, *defaultCfg)
	if err != nil {
		return err
	}

	if cmd == "fetch" && (cfg.Logging.Output == "stdout" || cfg.Logging.Output == "") {
		// stdout carries the JSON result
		cfg.Logging.Output = "stderr"
	}
	appLog, err := logger.New(logger.FromConfig(cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return serve(ctx, stop, app{
			dataDir:     *dataDir,
			userCfgPath: userCfgPath,
			cfg:         cfg,
			log:         appLog,
		})
	case "fetch":
		return fetch(ctx, cfg, appLog.Logger, os.Stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig bootstraps the user config in dataDir, then loads it with env
// overrides applied.
func loadConfig(dataDir, defaultPath string) (string, config.Config, error) {
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultPath)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("config bootstrap failed: %w", err)
	}
	cfg, err := readConfig(userCfgPath)
	if err != nil {
		return "", config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return "", config.Config{}, fmt.Errorf("invalid config %s: %w", userCfgPath, err)
	}
	return userCfgPath, cfg, nil
}

func readConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	config.ApplyEnv(&cfg, os.Getenv)
	return cfg, nil
}

// newAggregator builds the shared fetch-normalize-merge core for cfg. The
// server and the fetch fallback both go through here.
func newAggregator(cfg config.Config, log *slog.Logger) (*feed.Aggregator, error) {
	sources, err := feed.SourcesFromConfig(cfg, secrets.GetToken)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: time.Duration(cfg.Feed.TimeoutSeconds+5) * time.Second}
	return feed.New(feed.ClientFromConfig(cfg.Feed, hc), sources, log), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
