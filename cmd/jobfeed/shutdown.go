package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"jobfeed-engine/internal/auth"
	"jobfeed-engine/internal/httpapi"
)

const shutdownTokenFile = "shutdown.token"

// shutdownToken returns JOBFEED_SHUTDOWN_TOKEN, or a fresh random token
// written to the data dir so a desktop shell that started the engine can
// stop it.
func shutdownToken(dataDir string) (string, error) {
	if t := strings.TrimSpace(os.Getenv("JOBFEED_SHUTDOWN_TOKEN")); t != "" {
		return t, nil
	}
	t, err := randomToken(16)
	if err != nil {
		return "", fmt.Errorf("shutdown token: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, shutdownTokenFile), []byte(t+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write shutdown token: %w", err)
	}
	return t, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownHandler lets a local caller holding the token stop the engine.
func shutdownHandler(token string, stop func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpapi.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !auth.IsLoopback(r.RemoteAddr) {
			httpapi.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			httpapi.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}

		// respond first; stop only signals the serve loop
		httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
		stop()
	}
}
