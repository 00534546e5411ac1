package resource

import (
	"time"

	"resource-cache/internal/fetchers"
)

// WarmingPattern is a named group of requests re-warmed on an interval.
// Patterns are created via explicit registration and mutated only by the
// periodic runner, which stamps LastRun; they are never auto-expired.
type WarmingPattern struct {
	Name     string              `json:"name"`     // Unique pattern name
	Requests []*fetchers.Request `json:"requests"` // Requests warmed on each run, in registration order
	Interval time.Duration       `json:"interval"` // How often the pattern is re-warmed
	LastRun  time.Time           `json:"last_run"` // When the runner last processed the pattern
}
