// Package auth is the boundary to the identity provider: it resolves the
// caller of a request to a Principal, or to nobody.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type ctxKey string

const principalKey ctxKey = "principal"

var ErrInvalidIdentity = errors.New("invalid identity")

// Authenticator resolves the caller of r. A nil Principal with a nil error
// means an anonymous request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)

// HeaderAuthenticator trusts identity headers set by a fronting gateway.
// With LoopbackOnly it ignores them unless the request comes from this host.
type HeaderAuthenticator struct {
	UserHeader   string // default X-User-ID
	EmailHeader  string // default X-User-Email
	LoopbackOnly bool
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	userHeader := a.UserHeader
	if userHeader == "" {
		userHeader = "X-User-ID"
	}
	emailHeader := a.EmailHeader
	if emailHeader == "" {
		emailHeader = "X-User-Email"
	}

	id := strings.TrimSpace(r.Header.Get(userHeader))
	if id == "" {
		return nil, nil
	}
	if a.LoopbackOnly && !IsLoopback(r.RemoteAddr) {
		return nil, nil
	}
	if !userIDPattern.MatchString(id) {
		return nil, ErrInvalidIdentity
	}
	return &Principal{ID: id, Email: strings.TrimSpace(r.Header.Get(emailHeader))}, nil
}

// IsLoopback reports whether remoteAddr (host:port) is a local address.
func IsLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Current returns the caller attached by Middleware, or nil.
func Current(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Middleware attaches the resolved principal to the request context. Invalid
// identities are treated as anonymous and logged.
func Middleware(a Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r)
			if err != nil {
				if log != nil {
					log.Warn("rejected identity", slog.String("path", r.URL.Path), slog.Any("err", err))
				}
				p = nil
			}
			if p != nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}
