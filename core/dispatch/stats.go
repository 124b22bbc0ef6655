package dispatch

import (
	"sync"
	"time"
)

// Stats aggregates dispatch outcomes since engine start.
type Stats struct {
	TotalRequests         int           `json:"total_requests"`
	SuccessfulAssignments int           `json:"successful_assignments"`
	FailedAssignments     int           `json:"failed_assignments"`
	AverageSearchTime     time.Duration `json:"average_search_time"`
	AcceptanceRate        float64       `json:"acceptance_rate"`
}

type statsTracker struct {
	mu    sync.Mutex
	stats Stats
}

func (t *statsTracker) recordSubmission() {
	t.mu.Lock()
	t.stats.TotalRequests++
	t.mu.Unlock()
}

// recordOutcome folds one completed search into the rolling averages.
func (t *statsTracker) recordOutcome(success bool, searchTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.stats.SuccessfulAssignments++
	} else {
		t.stats.FailedAssignments++
	}
	n := t.stats.SuccessfulAssignments + t.stats.FailedAssignments
	prev := t.stats.AverageSearchTime
	t.stats.AverageSearchTime = (prev*time.Duration(n-1) + searchTime) / time.Duration(n)
	if t.stats.TotalRequests > 0 {
		t.stats.AcceptanceRate = float64(t.stats.SuccessfulAssignments) / float64(t.stats.TotalRequests)
	}
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
