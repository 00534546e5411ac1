package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/fetchers"
)

// FetchResource serves a resource request through the cached pipeline.
// The response carries the fetch result with cache bookkeeping in its
// metadata (cache_hit, cache_key, cached_at, ...).
func (h *Handlers) FetchResource(w http.ResponseWriter, r *http.Request) {
	var req fetchers.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.ValidationError("invalid fetch request body"))
		return
	}
	if req.Kind == "" {
		respondError(w, apperrors.ValidationError("kind is required"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	result, err := h.resources.FetchResource(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
