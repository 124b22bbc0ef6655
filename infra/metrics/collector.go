package metrics

import (
	"context"

	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events published outside the engine's own sink path, such as driver status
// transitions observed on the fleet registry. It stops when the context is
// canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.AssignmentSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case coremetrics.DriverStatusEvent:
					if r, ok := sink.(coremetrics.DriverStatusRecorder); ok {
						_ = r.RecordDriverStatus(e)
					}
				case coremetrics.ResponseLatency:
					if r, ok := sink.(coremetrics.LatencyRecorder); ok {
						_ = r.RecordResponseLatency([]coremetrics.ResponseLatency{e})
					}
				}
			}
		}
	}()
}
