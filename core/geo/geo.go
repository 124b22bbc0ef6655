// Package geo provides the distance and ETA math used by the assignment
// strategies and the dispatch engine. All distances are kilometers.
package geo

import (
	"math"
	"sort"

	"github.com/veeo/driver-dispatch/core/model"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the Haversine great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// ETAMinutes estimates travel time for a distance at the given average speed.
// A non-positive speed falls back to 30 km/h city traffic.
func ETAMinutes(distanceKm, avgSpeedKmh float64) int {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 30
	}
	return int(math.Round(distanceKm / avgSpeedKmh * 60))
}

// Candidate is a driver annotated with its distance to a pickup point.
type Candidate struct {
	Driver           model.Driver
	DistanceKm       float64
	EstimatedArrival int // minutes
}

// SearchOptions narrows a FindNearestDrivers call.
type SearchOptions struct {
	MaxDistanceKm float64 // 0 means 10 km
	MaxResults    int     // 0 means 10
	VehicleType   string  // empty matches any
	StatusFilter  []model.DriverStatus
}

// FindNearestDrivers filters the given drivers to active ones with a known
// location matching the status filter (default: available) and optional
// vehicle type, computes distance and ETA to the pickup point, drops anyone
// beyond MaxDistanceKm and returns at most MaxResults candidates sorted by
// ascending distance.
func FindNearestDrivers(pickupLat, pickupLng float64, drivers []model.Driver, opts SearchOptions) []Candidate {
	maxDistance := opts.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = 10
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	statuses := opts.StatusFilter
	if len(statuses) == 0 {
		statuses = []model.DriverStatus{model.StatusAvailable}
	}

	out := make([]Candidate, 0, len(drivers))
	for _, d := range drivers {
		if !d.IsActive || !d.HasLocation() {
			continue
		}
		if !statusMatch(statuses, d.Status) {
			continue
		}
		if opts.VehicleType != "" && d.VehicleType != opts.VehicleType {
			continue
		}
		dist := DistanceKm(pickupLat, pickupLng, d.Location.Lat, d.Location.Lng)
		if dist > maxDistance {
			continue
		}
		out = append(out, Candidate{Driver: d, DistanceKm: dist, EstimatedArrival: ETAMinutes(dist, 30)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func statusMatch(filter []model.DriverStatus, s model.DriverStatus) bool {
	for _, f := range filter {
		if f == s {
			return true
		}
	}
	return false
}

// InWorkArea reports whether the driver's last known position lies within
// radiusKm of the given center. Drivers without a location are outside.
func InWorkArea(d model.Driver, centerLat, centerLng, radiusKm float64) bool {
	if !d.HasLocation() {
		return false
	}
	return DistanceKm(d.Location.Lat, d.Location.Lng, centerLat, centerLng) <= radiusKm
}

// BoundingBox is a rectangular area around a point, usable for coarse
// pre-filtering in external indexes.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround approximates the bounding box covering radiusKm around a point.
// One degree of latitude is ~111 km; the longitude delta shrinks with cos(lat).
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / 111
	lngDelta := radiusKm / (111 * math.Cos(toRad(lat)))
	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}
