package assignment

import (
	"gonum.org/v1/gonum/floats"

	"github.com/veeo/driver-dispatch/core/geo"
	"github.com/veeo/driver-dispatch/core/model"
)

// Balanced weighs proximity, rating and fairness (fewer completed rides)
// when selecting a driver. Weights: 40% proximity, 30% rating, 30% fairness.
type Balanced struct{}

const (
	proximityWeight = 0.4
	ratingWeight    = 0.3
	fairnessWeight  = 0.3
)

func (Balanced) FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result {
	pool := geo.FindNearestDrivers(ride.Pickup.Lat, ride.Pickup.Lng, available, geo.SearchOptions{
		MaxDistanceKm: p.SearchRadiusKm,
		MaxResults:    ratingPoolSize,
		VehicleType:   ride.VehicleType,
	})
	if len(pool) == 0 {
		return failure("No drivers available")
	}

	distances := make([]float64, len(pool))
	rides := make([]float64, len(pool))
	for i, c := range pool {
		distances[i] = c.DistanceKm
		rides[i] = float64(c.Driver.TotalRides)
	}
	maxDistance := floats.Max(distances)
	maxRides := floats.Max(rides)
	if maxRides == 0 {
		maxRides = 1
	}

	bestIdx := 0
	bestScore := -1.0
	for i, c := range pool {
		score := Score(c.DistanceKm, maxDistance, c.Driver.Rating, float64(c.Driver.TotalRides), maxRides)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	best := pool[bestIdx]
	return Result{
		Success:          true,
		Driver:           &best.Driver,
		DistanceKm:       best.DistanceKm,
		EstimatedArrival: best.EstimatedArrival,
	}
}

// Score computes the balanced selection score for one candidate against the
// pool maxima. Exported so the formula is testable in isolation.
func Score(distance, maxDistance, rating, totalRides, maxRides float64) float64 {
	proximity := 1.0
	if maxDistance > 0 {
		proximity = 1 - distance/maxDistance
	}
	ratingScore := rating / 5
	fairness := 1 - totalRides/maxRides
	return proximity*proximityWeight + ratingScore*ratingWeight + fairness*fairnessWeight
}
