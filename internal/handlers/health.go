package handlers

import (
	"net/http"
	"time"
)

// Health reports service liveness and cache backend reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if h.backendCheck != nil {
		if err := h.backendCheck(); err != nil {
			status = "degraded: " + err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"uptime": time.Since(h.startTime).String(),
	})
}
