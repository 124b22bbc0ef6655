package assignment

import (
	"sort"

	"github.com/veeo/driver-dispatch/core/geo"
	"github.com/veeo/driver-dispatch/core/model"
)

// ratingPoolSize widens the candidate pool beyond MaxDriversToNotify so the
// rating and balanced strategies select from more than just the closest few.
const ratingPoolSize = 20

// Rating selects the best-rated driver within the search radius.
type Rating struct{}

func (Rating) FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result {
	pool := geo.FindNearestDrivers(ride.Pickup.Lat, ride.Pickup.Lng, available, geo.SearchOptions{
		MaxDistanceKm: p.SearchRadiusKm,
		MaxResults:    ratingPoolSize,
		VehicleType:   ride.VehicleType,
	})
	if len(pool) == 0 {
		return failure("No drivers available")
	}
	// Stable sort keeps the closer driver first among equal ratings.
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Driver.Rating > pool[j].Driver.Rating })
	best := pool[0]
	return Result{
		Success:          true,
		Driver:           &best.Driver,
		DistanceKm:       best.DistanceKm,
		EstimatedArrival: best.EstimatedArrival,
	}
}
