package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIError is the body of every non-2xx JSON response.
type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, APIError{
		Error:     message,
		Code:      code,
		RequestID: RequestIDFrom(r.Context()),
	})
}
