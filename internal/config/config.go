package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source kinds with a registered normalizer.
const (
	KindArbeitnow = "arbeitnow"
	KindRemotive  = "remotive"
	KindJobicy    = "jobicy"
)

func Kinds() []string {
	return []string{KindArbeitnow, KindRemotive, KindJobicy}
}

// Source is one upstream feed. Order in Config.Sources is the dedupe
// priority: earlier sources win slug collisions.
type Source struct {
	Name    string `yaml:"name" json:"name"`
	Kind    string `yaml:"kind" json:"kind"`
	URL     string `yaml:"url" json:"url"`
	Enabled bool   `yaml:"enabled" json:"enabled"`

	// drop | random | hash; empty means the kind's default.
	IdentityFallback string `yaml:"identity_fallback" json:"identity_fallback"`

	// Keyring account holding a bearer token for this feed, if it needs one.
	TokenAccount string `yaml:"token_account" json:"token_account"`
}

type AppConfig struct {
	Name        string `yaml:"name" json:"name"`
	Environment string `yaml:"environment" json:"environment"`
	DataDir     string `yaml:"data_dir" json:"data_dir"`
}

type ServerConfig struct {
	Host                   string `yaml:"host" json:"host"`
	Port                   int    `yaml:"port" json:"port"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds" json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds" json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds"`
}

type LoggingConfig struct {
	Level        string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format       string `yaml:"format" json:"format"` // json, console
	Output       string `yaml:"output" json:"output"` // stdout, stderr or a file path
	EnableSource bool   `yaml:"enable_source" json:"enable_source"`
}

type FeedConfig struct {
	TimeoutSeconds     int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second" json:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst" json:"rate_limit_burst"`
	UserAgent          string  `yaml:"user_agent" json:"user_agent"`

	// Cache-Control on /api/jobs: s-maxage plus stale-while-revalidate.
	SharedMaxAgeSeconds         int `yaml:"shared_max_age_seconds" json:"shared_max_age_seconds"`
	StaleWhileRevalidateSeconds int `yaml:"stale_while_revalidate_seconds" json:"stale_while_revalidate_seconds"`
}

type CacheConfig struct {
	RedisURL   string `yaml:"redis_url" json:"redis_url"`
	Key        string `yaml:"key" json:"key"`
	TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds"`
}

type PollConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Spec    string `yaml:"spec" json:"spec"` // robfig/cron spec, e.g. "@every 5m"
}

type StoreConfig struct {
	Path string `yaml:"path" json:"path"` // sqlite file, relative to app.data_dir
}

type ClientConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

type Config struct {
	App     AppConfig     `yaml:"app" json:"app"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Feed    FeedConfig    `yaml:"feed" json:"feed"`
	Sources []Source      `yaml:"sources" json:"sources"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Poll    PollConfig    `yaml:"poll" json:"poll"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Client  ClientConfig  `yaml:"client" json:"client"`
}

// Default is the built-in configuration, also written out on first run when
// no default file ships next to the binary.
func Default() Config {
	cfg := Config{
		Sources: []Source{
			{Name: "arbeitnow", Kind: KindArbeitnow, URL: "https://www.arbeitnow.com/api/job-board-api", Enabled: true},
			{Name: "remotive", Kind: KindRemotive, URL: "https://remotive.com/api/remote-jobs", Enabled: true},
			{Name: "jobicy", Kind: KindJobicy, URL: "https://jobicy.com/api/v2/remote-jobs", Enabled: true},
		},
	}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "jobfeed"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 38471
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 5
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Feed.TimeoutSeconds == 0 {
		cfg.Feed.TimeoutSeconds = 8
	}
	if cfg.Feed.UserAgent == "" {
		cfg.Feed.UserAgent = "jobfeed/1.0 (+local)"
	}
	if cfg.Feed.SharedMaxAgeSeconds == 0 {
		cfg.Feed.SharedMaxAgeSeconds = 300
	}
	if cfg.Cache.Key == "" {
		cfg.Cache.Key = "jobfeed:jobs:v1"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = cfg.Feed.SharedMaxAgeSeconds
	}
	if cfg.Poll.Spec == "" {
		cfg.Poll.Spec = "@every 5m"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "jobfeed.db"
	}
	if cfg.Client.Endpoint == "" {
		cfg.Client.Endpoint = fmt.Sprintf("http://127.0.0.1:%d/api/jobs", cfg.Server.Port)
	}
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// ApplyEnv overrides selected settings from the environment. .env files are
// loaded by the caller before this runs.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("JOBFEED_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := strings.TrimSpace(getenv("JOBFEED_REDIS_URL")); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := strings.TrimSpace(getenv("JOBFEED_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv("JOBFEED_LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(getenv("JOBFEED_ENDPOINT")); v != "" {
		cfg.Client.Endpoint = v
	}
}

// EnabledSources returns enabled sources in priority order.
func (c Config) EnabledSources() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
