// Package handlers exposes the cache service's HTTP operations surface:
// fetching resources through the cached pipeline, reading statistics,
// invalidating by tag, host, or kind, and managing warming patterns.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/resource"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	resources    *resource.Manager
	backendCheck func() error
	startTime    time.Time
}

// New creates the handler set. backendCheck reports cache backend
// reachability for the health endpoint and may be nil for backends without
// a connection to probe.
func New(resources *resource.Manager, backendCheck func() error) *Handlers {
	return &Handlers{
		resources:    resources,
		backendCheck: backendCheck,
		startTime:    time.Now(),
	}
}

// SetupRoutes registers all routes on the router.
func (h *Handlers) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/fetch", h.FetchResource).Methods("POST")
	api.HandleFunc("/cache/stats", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache/tags/{tag}", h.InvalidateTag).Methods("DELETE")
	api.HandleFunc("/cache/hosts/{host}", h.InvalidateHost).Methods("DELETE")
	api.HandleFunc("/cache/kinds/{kind}", h.InvalidateKind).Methods("DELETE")
	api.HandleFunc("/cache/warming/patterns", h.AddWarmingPattern).Methods("POST")
	api.HandleFunc("/cache/warming/patterns", h.ListWarmingPatterns).Methods("GET")
	api.HandleFunc("/cache/warming/patterns/{name}", h.RemoveWarmingPattern).Methods("DELETE")
	api.HandleFunc("/cache/warming/run", h.RunWarmingPatterns).Methods("POST")
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError maps an application error to an HTTP status and writes it.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetType(err) {
	case apperrors.ErrTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrTypeConfig:
		status = http.StatusConflict
	case apperrors.ErrTypeConnection:
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
