package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"jobfeed-engine/internal/auth"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/store"
)

const maxDocumentBytes = 1 << 20

// Collections a signed-in user may write to.
var DefaultCollections = []string{"saved_jobs", "applications", "profile"}

type DocumentsHandler struct {
	Store       DocumentStore
	Hub         *events.Hub
	Collections []string
}

// ServeHTTP handles /api/me/{collection} and /api/me/{collection}/{id}.
func (h DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := auth.Current(r.Context())
	if p == nil {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "sign in required")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/me/"), "/")
	parts := strings.Split(rest, "/")
	collection := parts[0]
	if collection == "" || !slices.Contains(h.collections(), collection) {
		WriteError(w, r, http.StatusNotFound, "unknown_collection", "unknown collection")
		return
	}

	switch len(parts) {
	case 1:
		methodMux(map[string]http.HandlerFunc{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) { h.list(w, r, p, collection) },
		})(w, r)
	case 2:
		id := parts[1]
		if id == "" || len(id) > 256 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
			return
		}
		methodMux(map[string]http.HandlerFunc{
			http.MethodGet:    func(w http.ResponseWriter, r *http.Request) { h.get(w, r, p, collection, id) },
			http.MethodPut:    func(w http.ResponseWriter, r *http.Request) { h.put(w, r, p, collection, id) },
			http.MethodDelete: func(w http.ResponseWriter, r *http.Request) { h.delete(w, r, p, collection, id) },
		})(w, r)
	default:
		WriteError(w, r, http.StatusNotFound, "not_found", "not found")
	}
}

func (h DocumentsHandler) collections() []string {
	if len(h.Collections) == 0 {
		return DefaultCollections
	}
	return h.Collections
}

func (h DocumentsHandler) list(w http.ResponseWriter, r *http.Request, p *auth.Principal, collection string) {
	var opts store.DocumentListOpts
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	docs, err := h.Store.ListDocuments(r.Context(), p.ID, collection, opts)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", "failed to list documents")
		return
	}
	writeJSON(w, map[string]any{"data": docs})
}

func (h DocumentsHandler) get(w http.ResponseWriter, r *http.Request, p *auth.Principal, collection, id string) {
	doc, err := h.Store.GetDocument(r.Context(), p.ID, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "document not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", "failed to load document")
		return
	}
	writeJSON(w, doc)
}

func (h DocumentsHandler) put(w http.ResponseWriter, r *http.Request, p *auth.Principal, collection, id string) {
	var body json.RawMessage
	if err := decodeJSON(w, r, maxDocumentBytes, &body, false); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}

	doc, err := h.Store.PutDocument(r.Context(), p.ID, collection, id, body)
	if errors.Is(err, store.ErrInvalidDocument) {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", "failed to save document")
		return
	}

	h.Hub.EmitTo(p.ID, RequestIDFrom(r.Context()), events.TypeDocumentChanged, events.DocumentChanged{Collection: collection, ID: id})
	writeJSON(w, doc)
}

func (h DocumentsHandler) delete(w http.ResponseWriter, r *http.Request, p *auth.Principal, collection, id string) {
	err := h.Store.DeleteDocument(r.Context(), p.ID, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "document not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store_error", "failed to delete document")
		return
	}

	h.Hub.EmitTo(p.ID, RequestIDFrom(r.Context()), events.TypeDocumentChanged, events.DocumentChanged{Collection: collection, ID: id, Deleted: true})
	w.WriteHeader(http.StatusNoContent)
}
