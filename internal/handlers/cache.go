package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Cache statistics and invalidation handlers

// GetCacheStats returns cache statistics including hit rate and warming state.
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.resources.CacheStats())
}

// InvalidateTag removes every cached entry carrying the tag.
func (h *Handlers) InvalidateTag(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]

	count, err := h.resources.InvalidateByTag(r.Context(), tag)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tag": tag, "invalidated": count})
}

// InvalidateHost removes every cached entry fetched from the host.
func (h *Handlers) InvalidateHost(w http.ResponseWriter, r *http.Request) {
	host := mux.Vars(r)["host"]

	count, err := h.resources.InvalidateByHost(r.Context(), host)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"host": host, "invalidated": count})
}

// InvalidateKind removes every cached entry of the resource kind.
func (h *Handlers) InvalidateKind(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]

	count, err := h.resources.InvalidateByKind(r.Context(), kind)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"kind": kind, "invalidated": count})
}
