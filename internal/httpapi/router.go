package httpapi

import (
	"net/http"

	"jobfeed-engine/internal/auth"
)

// NewMux returns the raw mux so main() can still attach extra routes.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{Aggregator: d.Aggregator, StartedAt: d.StartedAt}.Health,
	}))

	// Jobs
	jh := JobsHandler{Cache: d.Cache, Refresher: d.Refresher, CfgVal: d.CfgVal, Log: d.Log}
	mux.HandleFunc("/api/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/api/jobs/sources", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Sources,
	}))
	mux.HandleFunc("/api/jobs/refresh", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: localOnly(jh.Refresh),
	}))

	// Per-user documents
	mux.Handle("/api/me/", DocumentsHandler{Store: d.Documents, Hub: d.Hub})

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Reload:      d.Reload,
		Hub:         d.Hub,
		Log:         d.Log,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: localOnly(ch.Get),
		http.MethodPut: localOnly(ch.Put),
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: localOnly(ch.Path),
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: localOnly(ch.Validate),
	}))

	// Provider tokens (use CfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal, Reload: d.Reload}
	mux.HandleFunc("/api/secrets", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: localOnly(sh.List),
	}))
	mux.HandleFunc("/api/secrets/", localOnly(sh.ByPath))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

// Handler is NewMux wrapped in the standard middleware chain.
func Handler(d Deps) http.Handler {
	authn := d.Auth
	if authn == nil {
		authn = auth.HeaderAuthenticator{LoopbackOnly: true}
	}
	return Chain(NewMux(d),
		RequestID,
		AccessLog(d.Log),
		Recover(d.Log),
		Cors,
		Middleware(auth.Middleware(authn, d.Log)),
	)
}
