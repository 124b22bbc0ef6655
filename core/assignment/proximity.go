package assignment

import (
	"github.com/veeo/driver-dispatch/core/geo"
	"github.com/veeo/driver-dispatch/core/model"
)

// Proximity selects the closest eligible driver to the pickup point.
type Proximity struct{}

func (Proximity) FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result {
	nearest := geo.FindNearestDrivers(ride.Pickup.Lat, ride.Pickup.Lng, available, geo.SearchOptions{
		MaxDistanceKm: p.SearchRadiusKm,
		MaxResults:    p.MaxDriversToNotify,
		VehicleType:   ride.VehicleType,
	})
	if len(nearest) == 0 {
		return failure("No drivers available within search radius")
	}
	best := nearest[0]
	return Result{
		Success:          true,
		Driver:           &best.Driver,
		DistanceKm:       best.DistanceKm,
		EstimatedArrival: best.EstimatedArrival,
	}
}
