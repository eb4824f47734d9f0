package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg (trimmed names and
// urls, lower-cased kinds) together with the validation result.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Sources = make([]Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		s.Name = strings.TrimSpace(s.Name)
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		s.URL = strings.TrimSpace(s.URL)
		s.IdentityFallback = strings.ToLower(strings.TrimSpace(s.IdentityFallback))
		s.TokenAccount = strings.TrimSpace(s.TokenAccount)
		out.Sources[i] = s
	}

	// ---- Validation rules ----

	if out.Server.Port <= 0 || out.Server.Port > 65535 {
		res.addErr("server.port must be 1..65535")
	}

	if out.Feed.TimeoutSeconds <= 0 {
		res.addErr("feed.timeout_seconds must be > 0")
	} else if out.Feed.TimeoutSeconds > 30 {
		res.addWarn("feed.timeout_seconds is high (%d); one slow feed delays every response by that much.", out.Feed.TimeoutSeconds)
	}
	if out.Feed.RateLimitPerSecond < 0 {
		res.addErr("feed.rate_limit_per_second must be >= 0")
	}
	if out.Feed.SharedMaxAgeSeconds < 0 || out.Feed.StaleWhileRevalidateSeconds < 0 {
		res.addErr("feed cache-control values must be >= 0")
	}

	seen := map[string]bool{}
	enabled := 0
	for i, s := range out.Sources {
		if s.Name == "" {
			res.addErr("sources[%d].name is required", i)
		} else {
			key := strings.ToLower(s.Name)
			if seen[key] {
				res.addErr("sources[%d].name %q is duplicated", i, s.Name)
			}
			seen[key] = true
		}
		if !slices.Contains(Kinds(), s.Kind) {
			res.addErr("sources[%d].kind %q is not one of %s", i, s.Kind, strings.Join(Kinds(), ", "))
		}
		if u, err := url.Parse(s.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("sources[%d].url must be an absolute http(s) url", i)
		}
		switch s.IdentityFallback {
		case "", "drop", "random", "hash":
		default:
			res.addErr("sources[%d].identity_fallback must be drop, random or hash", i)
		}
		if s.IdentityFallback == "random" {
			res.addWarn("sources[%d] uses a random identity fallback; its anonymous postings never dedupe across refreshes.", i)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		res.addWarn("no sources enabled; /api/jobs will always be empty.")
	}

	if out.Cache.TTLSeconds < 0 {
		res.addErr("cache.ttl_seconds must be >= 0")
	}
	if out.Poll.Enabled && strings.TrimSpace(out.Poll.Spec) == "" {
		res.addErr("poll.spec is required when poll.enabled=true")
	}
	if out.Poll.Enabled && out.Cache.RedisURL == "" {
		res.addWarn("poll is enabled without cache.redis_url; refreshes only update /api/jobs/sources.")
	}

	switch strings.ToLower(out.Logging.Format) {
	case "", "json", "console":
	default:
		res.addWarn("logging.format %q is unknown; falling back to json.", out.Logging.Format)
	}

	return out, res
}
