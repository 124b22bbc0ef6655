package assignment

import (
	"math"
	"sync"

	"github.com/veeo/driver-dispatch/core/geo"
	"github.com/veeo/driver-dispatch/core/model"
)

// Queue selects drivers first-come-first-served from an explicit FIFO of
// driver ids. The queue is maintained by Add/Remove calls, not derived from
// driver status; a queued driver is skipped while ineligible but keeps its
// place.
type Queue struct {
	mu    sync.Mutex
	queue []string
}

// NewQueue creates an empty queue strategy.
func NewQueue() *Queue { return &Queue{} }

// Add appends the driver to the back of the queue unless already present.
func (q *Queue) Add(driverID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.queue {
		if id == driverID {
			return
		}
	}
	q.queue = append(q.queue, driverID)
}

// Remove deletes the driver from the queue, keeping the remaining order.
func (q *Queue) Remove(driverID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.queue[:0]
	for _, id := range q.queue {
		if id != driverID {
			out = append(out, id)
		}
	}
	q.queue = out
}

// Snapshot returns the queued ids in order.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.queue...)
}

func (q *Queue) FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result {
	eligible := make(map[string]model.Driver, len(available))
	for _, d := range available {
		if d.IsActive && d.Status == model.StatusAvailable && d.VehicleType == ride.VehicleType {
			eligible[d.ID] = d
		}
	}

	for _, id := range q.Snapshot() {
		d, ok := eligible[id]
		if !ok || !d.HasLocation() {
			continue
		}
		dist := geo.DistanceKm(ride.Pickup.Lat, ride.Pickup.Lng, d.Location.Lat, d.Location.Lng)
		if dist > p.MaxSearchRadiusKm {
			continue
		}
		return Result{
			Success:          true,
			Driver:           &d,
			DistanceKm:       dist,
			EstimatedArrival: int(math.Round(dist / 30 * 60)),
		}
	}
	return failure("No eligible drivers in queue")
}
