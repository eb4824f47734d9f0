package httpapi

import (
	"net/http"
	"strings"
	"sync/atomic"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
	Reload func(config.Config) error
}

type setTokenReq struct {
	Token string `json:"token"`
}

type tokenStatus struct {
	Source  string `json:"source"`
	Account string `json:"account"`
	Set     bool   `json:"set"`
}

// List reports which sources have a stored token. Tokens are never returned.
func (h SecretsHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	out := make([]tokenStatus, 0)
	for _, s := range cfg.Sources {
		if s.TokenAccount == "" {
			continue
		}
		out = append(out, tokenStatus{Source: s.Name, Account: s.TokenAccount, Set: secrets.HasToken(s.TokenAccount)})
	}
	writeJSON(w, map[string]any{"tokens": out})
}

// ByPath handles PUT and DELETE /api/secrets/{account}.
func (h SecretsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	account := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/secrets/"), "/")
	if account == "" || strings.Contains(account, "/") {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid account")
		return
	}

	methodMux(map[string]http.HandlerFunc{
		http.MethodPut: func(w http.ResponseWriter, r *http.Request) {
			var req setTokenReq
			if err := decodeJSON(w, r, 16<<10, &req, true); err != nil {
				WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
				return
			}
			if err := secrets.SetToken(account, req.Token); err != nil {
				WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store token: "+err.Error())
				return
			}
			h.reload(w, r)
		},
		http.MethodDelete: func(w http.ResponseWriter, r *http.Request) {
			if err := secrets.DeleteToken(account); err != nil {
				WriteError(w, r, http.StatusInternalServerError, "keyring_error", "failed to delete token: "+err.Error())
				return
			}
			h.reload(w, r)
		},
	})(w, r)
}

// reload rebuilds the sources so the new token takes effect.
func (h SecretsHandler) reload(w http.ResponseWriter, r *http.Request) {
	if h.Reload != nil {
		if err := h.Reload(h.CfgVal.Load().(config.Config)); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "reload_failed", "token saved but apply failed: "+err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
