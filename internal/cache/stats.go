package cache

// Stats is a point-in-time snapshot of the manager's counters. Counters
// reset only on process restart and are never persisted.
type Stats struct {
	Hits               int64   `json:"hits"`                 // Successful reads
	Misses             int64   `json:"misses"`               // Reads that found nothing
	Sets               int64   `json:"sets"`                 // Successful writes
	Deletes            int64   `json:"deletes"`              // Successful explicit deletes
	Evictions          int64   `json:"evictions"`            // Entries evicted under capacity pressure
	HitRate            float64 `json:"hit_rate"`             // Hits / (Hits + Misses)
	TotalRequests      int64   `json:"total_requests"`       // Hits + Misses
	ActiveWarmingTasks int     `json:"active_warming_tasks"` // Warming tasks currently in flight
}
