package assignment

import "github.com/veeo/driver-dispatch/core/model"

// Auto dispatches to the strategy named in configuration. It owns the shared
// Queue instance so queue membership survives across selections; unknown
// names fall back to proximity.
type Auto struct {
	name       StrategyName
	strategies map[StrategyName]Strategy
	queue      *Queue
}

// NewAuto builds the strategy table for the given configured name.
func NewAuto(name StrategyName) *Auto {
	q := NewQueue()
	return &Auto{
		name: name,
		strategies: map[StrategyName]Strategy{
			StrategyNearest:  Proximity{},
			StrategyQueue:    q,
			StrategyRating:   Rating{},
			StrategyBalanced: Balanced{},
		},
		queue: q,
	}
}

// SetStrategy switches the active strategy name.
func (a *Auto) SetStrategy(name StrategyName) { a.name = name }

// Queue exposes the shared FIFO so callers can manage membership.
func (a *Auto) Queue() *Queue { return a.queue }

func (a *Auto) FindDriver(ride model.RideRequest, available []model.Driver, p Params) Result {
	s, ok := a.strategies[a.name]
	if !ok {
		s = a.strategies[StrategyNearest]
	}
	return s.FindDriver(ride, available, p)
}
