package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "resource-cache/internal/common/errors"
	"resource-cache/internal/fetchers"
)

// Warming pattern handlers

// warmingPatternRequest is the registration payload for a warming pattern.
type warmingPatternRequest struct {
	Name     string              `json:"name"`
	Interval string              `json:"interval"` // Duration string, e.g. "5m"
	Requests []*fetchers.Request `json:"requests"`
}

// AddWarmingPattern registers a named group of requests warmed on an interval.
func (h *Handlers) AddWarmingPattern(w http.ResponseWriter, r *http.Request) {
	var req warmingPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.ValidationError("invalid warming pattern body"))
		return
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil {
		respondError(w, apperrors.ValidationError("interval must be a valid duration (e.g., '5m')"))
		return
	}

	if err := h.resources.AddWarmingPattern(req.Name, req.Requests, interval); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"name":     req.Name,
		"requests": len(req.Requests),
		"interval": interval.String(),
	})
}

// ListWarmingPatterns returns the registered warming patterns.
func (h *Handlers) ListWarmingPatterns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.resources.WarmingPatterns())
}

// RemoveWarmingPattern unregisters a warming pattern by name.
func (h *Handlers) RemoveWarmingPattern(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if !h.resources.RemoveWarmingPattern(name) {
		respondError(w, apperrors.NotFoundError("warming pattern "+name))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"name": name, "removed": true})
}

// RunWarmingPatterns runs every registered pattern once and returns how
// many requests each pattern warmed.
func (h *Handlers) RunWarmingPatterns(w http.ResponseWriter, r *http.Request) {
	counts := h.resources.RunWarmingPatterns(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{"warmed": counts})
}
