// Package assignment implements the driver selection strategies used by the
// dispatch engine. A Strategy is a pure selection over a candidate list; all
// registry state stays in core/driver and all lifecycle state in
// core/dispatch.
package assignment

import "github.com/veeo/driver-dispatch/core/model"

// StrategyName selects an assignment strategy in configuration.
type StrategyName string

const (
	StrategyNearest  StrategyName = "nearest"
	StrategyQueue    StrategyName = "queue"
	StrategyRating   StrategyName = "rating"
	StrategyBalanced StrategyName = "balanced"
)

// Params carries the per-attempt search window. The engine widens
// SearchRadiusKm between attempts while MaxSearchRadiusKm stays fixed.
type Params struct {
	SearchRadiusKm     float64
	MaxSearchRadiusKm  float64
	MaxDriversToNotify int
}

// Result is the outcome of a single selection.
type Result struct {
	Success          bool
	Driver           *model.Driver
	DistanceKm       float64
	EstimatedArrival int // minutes
	Reason           string
}

func failure(reason string) Result { return Result{Reason: reason} }

// Strategy selects one driver for a ride request from the available pool.
type Strategy interface {
	FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result
}
