package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, "jobfeed-test", cfg.App.Name)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, 3, cfg.Feed.TimeoutSeconds)
			require.Len(t, cfg.Sources, 2)
			assert.Equal(t, "sourceA", cfg.Sources[0].Name)
			assert.Equal(t, "b-token", cfg.Sources[1].TokenAccount)
			assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)

			// defaults fill what the file leaves out
			assert.Equal(t, 300, cfg.Feed.SharedMaxAgeSeconds)
			assert.Equal(t, 300, cfg.Cache.TTLSeconds)
			assert.Equal(t, "@every 5m", cfg.Poll.Spec)
			assert.Equal(t, "http://127.0.0.1:8080/api/jobs", cfg.Client.Endpoint)
		})
	}
}

func TestShippedDefaultConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)

	_, vr := NormalizeAndValidate(cfg)
	assert.Empty(t, vr.Errors)
	assert.Len(t, cfg.EnabledSources(), 3)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 8, cfg.Feed.TimeoutSeconds)
	assert.Equal(t, []string{"arbeitnow", "remotive", "jobicy"}, []string{
		cfg.Sources[0].Kind, cfg.Sources[1].Kind, cfg.Sources[2].Kind,
	})
}

func TestNormalizeAndValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Sources = []Source{{Name: "a", Kind: KindArbeitnow, URL: "https://a.example", Enabled: true}}
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantErr  string
		wantWarn string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Feed.TimeoutSeconds = 0 },
			wantErr: "feed.timeout_seconds",
		},
		{
			name:     "high timeout",
			mutate:   func(c *Config) { c.Feed.TimeoutSeconds = 60 },
			wantWarn: "feed.timeout_seconds is high",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Sources[0].Kind = "indeed" },
			wantErr: `kind "indeed"`,
		},
		{
			name:    "relative url",
			mutate:  func(c *Config) { c.Sources[0].URL = "/api/jobs" },
			wantErr: "sources[0].url",
		},
		{
			name: "duplicate name",
			mutate: func(c *Config) {
				c.Sources = append(c.Sources, Source{Name: " A ", Kind: KindRemotive, URL: "https://b.example"})
			},
			wantErr: "duplicated",
		},
		{
			name:    "bad fallback",
			mutate:  func(c *Config) { c.Sources[0].IdentityFallback = "guess" },
			wantErr: "identity_fallback",
		},
		{
			name:     "random fallback warns",
			mutate:   func(c *Config) { c.Sources[0].IdentityFallback = "Random" },
			wantWarn: "random identity fallback",
		},
		{
			name:     "nothing enabled",
			mutate:   func(c *Config) { c.Sources[0].Enabled = false },
			wantWarn: "no sources enabled",
		},
		{
			name:     "poll without cache",
			mutate:   func(c *Config) { c.Poll.Enabled = true },
			wantWarn: "without cache.redis_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			_, vr := NormalizeAndValidate(cfg)
			if tt.wantErr == "" {
				assert.True(t, vr.OK(), "unexpected errors: %v", vr.Errors)
			} else {
				require.False(t, vr.OK())
				assert.Contains(t, vr.Errors[0], tt.wantErr)
			}
			if tt.wantWarn != "" {
				require.NotEmpty(t, vr.Warnings)
				assert.Contains(t, vr.Warnings[0], tt.wantWarn)
			}
		})
	}
}

func TestNormalizeAndValidate_TrimsSources(t *testing.T) {
	cfg := Default()
	cfg.Sources = []Source{{Name: "  a ", Kind: " ArbeitNow", URL: " https://a.example ", IdentityFallback: " HASH "}}

	out, vr := NormalizeAndValidate(cfg)
	require.True(t, vr.OK(), vr.Errors)
	assert.Equal(t, Source{Name: "a", Kind: "arbeitnow", URL: "https://a.example", IdentityFallback: "hash"}, out.Sources[0])
	assert.Equal(t, "  a ", cfg.Sources[0].Name, "input must not be modified")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"JOBFEED_PORT":      "9090",
		"JOBFEED_REDIS_URL": "redis://cache:6379/1",
		"JOBFEED_LOG_LEVEL": "debug",
	}
	cfg := Default()
	ApplyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestSaveAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yml")

	cfg := Default()
	require.NoError(t, SaveAtomic(path, cfg))

	cfg.Server.Port = 9000
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, got.Server.Port)

	bak, err := Load(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, 38471, bak.Server.Port)

	cfg.Server.Port = -1
	err = SaveAtomic(path, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestEnsureUserConfig(t *testing.T) {
	t.Run("copies the shipped default", func(t *testing.T) {
		dir := t.TempDir()
		def := filepath.Join(dir, "default.yml")
		require.NoError(t, os.WriteFile(def, []byte("server:\n  port: 1234\n"), 0o644))

		p, err := EnsureUserConfig(dir, def)
		require.NoError(t, err)
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, 1234, cfg.Server.Port)
	})

	t.Run("writes Default when nothing ships", func(t *testing.T) {
		dir := t.TempDir()
		p, err := EnsureUserConfig(dir, filepath.Join(dir, "missing.yml"))
		require.NoError(t, err)
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Len(t, cfg.Sources, 3)
	})

	t.Run("keeps an existing user file", func(t *testing.T) {
		dir := t.TempDir()
		user := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(user, []byte("server:\n  port: 4321\n"), 0o644))

		p, err := EnsureUserConfig(dir, "does-not-matter.yml")
		require.NoError(t, err)
		assert.Equal(t, user, p)
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, 4321, cfg.Server.Port)
	})
}
