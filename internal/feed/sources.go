package feed

import (
	"fmt"
	"net/http"
	"time"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/feed/util"
)

// TokenFunc resolves a keyring account to a bearer token. It returns "" and
// a nil error when no token is stored.
type TokenFunc func(account string) (string, error)

// SourcesFromConfig builds the enabled sources in configured order.
func SourcesFromConfig(cfg config.Config, token TokenFunc) ([]Source, error) {
	var out []Source
	for _, s := range cfg.EnabledSources() {
		k, ok := LookupKind(s.Kind)
		if !ok {
			return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}

		fb := k.Fallback
		if s.IdentityFallback != "" {
			f, ok := util.ParseFallback(s.IdentityFallback)
			if !ok {
				return nil, fmt.Errorf("source %q: bad identity_fallback %q", s.Name, s.IdentityFallback)
			}
			fb = f
		}

		src := Source{
			Name:      s.Name,
			Kind:      s.Kind,
			URL:       s.URL,
			Fallback:  fb,
			Normalize: k.Normalize,
		}
		if s.TokenAccount != "" && token != nil {
			t, err := token(s.TokenAccount)
			if err != nil {
				return nil, fmt.Errorf("source %q: token: %w", s.Name, err)
			}
			src.Token = t
		}
		out = append(out, src)
	}
	return out, nil
}

// ClientFromConfig builds a feed client over hc (http.DefaultClient if nil)
// with the configured timeout and rate limit.
func ClientFromConfig(cfg config.FeedConfig, hc Doer) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return NewClient(hc, timeout, util.NewHostLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst), cfg.UserAgent)
}
