package httpapi

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
)

// ConfigHandler edits the user config file. GET and PUT work on the file as
// written; environment overrides apply to the running config only and never
// reach a response or the file.
type ConfigHandler struct {
	CfgVal      *atomic.Value // stores config.Config, env applied
	UserCfgPath string
	LoadCfg     func() (config.Config, error) // file plus env
	Reload      func(config.Config) error
	Hub         *events.Hub
	Log         *slog.Logger
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur, err := config.Load(h.UserCfgPath)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "load_failed", err.Error())
		return
	}
	writeJSON(w, cur)
}

func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := decodeJSON(w, r, 1<<20, &incoming, true); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	normalized, vr := config.NormalizeAndValidate(incoming)
	if !vr.OK() {
		// structured errors so a UI can list them
		WriteJSON(w, http.StatusBadRequest, vr)
		return
	}

	if err := config.SaveAtomic(h.UserCfgPath, normalized); err != nil {
		WriteError(w, r, http.StatusBadRequest, "save_failed", err.Error())
		return
	}

	saved, err := h.LoadCfg()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "reload_failed", "saved but reload failed: "+err.Error())
		return
	}
	if h.Reload != nil {
		if err := h.Reload(saved); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "reload_failed", "saved but apply failed: "+err.Error())
			return
		}
	}
	h.CfgVal.Store(saved)
	h.Log.Info("config updated", slog.String("path", h.UserCfgPath), slog.Int("sources", len(saved.Sources)))
	h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeConfigChanged, nil)
	writeJSON(w, normalized)
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, map[string]any{"path": abs})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	_, vr := config.NormalizeAndValidate(cur)
	writeJSON(w, vr)
}
