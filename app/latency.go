package app

import (
	"strings"
	"time"

	"github.com/veeo/driver-dispatch/core/dispatch"
	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
)

// offerRetention bounds how long an unanswered offer is kept for pairing.
// Rides cancelled mid-offer produce no driver_responded event, so anything
// older is dropped by the periodic sweep.
const offerRetention = 5 * time.Minute

// latencyTracker pairs driver_notified events with the matching
// driver_responded event to measure how long drivers take to answer offers.
type latencyTracker struct {
	notified map[string]time.Time
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{notified: make(map[string]time.Time)}
}

// observe feeds one dispatch event through the tracker. The returned latency
// is meaningful only when ok is true.
func (lt *latencyTracker) observe(e dispatch.Event) (lat coremetrics.ResponseLatency, ok bool) {
	switch e.Type {
	case dispatch.EventDriverNotified:
		lt.notified[e.RequestID+"/"+e.DriverID] = e.Timestamp
	case dispatch.EventDriverResponded:
		key := e.RequestID + "/" + e.DriverID
		at, seen := lt.notified[key]
		if !seen {
			return lat, false
		}
		delete(lt.notified, key)
		response, _ := e.Data["response"].(string)
		return coremetrics.ResponseLatency{
			DriverID: e.DriverID,
			Accepted: response == "accepted",
			Latency:  e.Timestamp.Sub(at),
		}, true
	case dispatch.EventSearchCompleted, dispatch.EventSearchFailed:
		lt.evictRequest(e.RequestID)
	}
	return lat, false
}

// evictRequest drops every outstanding offer of the request. Terminal events
// carry at most the winning driver id, so matching is by request prefix.
func (lt *latencyTracker) evictRequest(requestID string) {
	prefix := requestID + "/"
	for key := range lt.notified {
		if strings.HasPrefix(key, prefix) {
			delete(lt.notified, key)
		}
	}
}

// sweep drops offers notified at or before the cutoff.
func (lt *latencyTracker) sweep(cutoff time.Time) {
	for key, at := range lt.notified {
		if !at.After(cutoff) {
			delete(lt.notified, key)
		}
	}
}

// pendingOffers reports how many notified offers still await a response.
func (lt *latencyTracker) pendingOffers() int { return len(lt.notified) }
