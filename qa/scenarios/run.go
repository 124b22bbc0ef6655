package scenarios

import (
	"context"
	"testing"

	"github.com/veeo/driver-dispatch/core/assignment"
	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/infra/notify"
)

// RunScenario executes the scenario against a fresh engine and fails the test
// when the outcome counts diverge from the expectation.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	fleet := driver.NewManager()
	for _, d := range sc.Drivers {
		fleet.Upsert(d.ToModel())
	}

	notifier := notification.NewService()
	notifier.RegisterProvider(model.ChannelPush, notify.NewMockProvider())

	cfg := dispatch.Config{
		SearchRadiusKm:     sc.SearchRadius,
		MaxSearchRadiusKm:  sc.MaxRadius,
		MaxSearchAttempts:  sc.MaxAttempts,
		AssignmentStrategy: assignment.StrategyName(sc.Strategy),
		EnablePush:         true,
	}
	engine, err := dispatch.NewEngine(cfg, fleet, notifier, dispatch.Options{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	declined := make(map[string]bool, len(sc.DeclineRides))
	for _, id := range sc.DeclineRides {
		declined[id] = true
	}

	assigned, failed := 0, 0
	for _, rd := range sc.Rides {
		res, err := engine.SubmitRideRequest(context.Background(), rd.ToModel())
		if err != nil {
			t.Fatalf("submit %s: %v", rd.ID, err)
		}
		if !res.Success {
			failed++
			continue
		}
		assigned++
		if want, ok := sc.Expected.Drivers[rd.ID]; ok && res.AssignedDriver.ID != want {
			t.Errorf("ride %s: assigned %s, want %s", rd.ID, res.AssignedDriver.ID, want)
		}
		if declined[rd.ID] {
			if !engine.DeclineRide(context.Background(), res.AssignedDriver.ID, rd.ID) {
				t.Errorf("ride %s: decline rejected", rd.ID)
			}
			d, _ := fleet.Get(res.AssignedDriver.ID)
			if d.Status != model.StatusAvailable {
				t.Errorf("ride %s: driver %s not released after decline", rd.ID, d.ID)
			}
		}
	}

	if assigned != sc.Expected.Assigned {
		t.Errorf("%s: assigned %d rides, want %d", sc.Name, assigned, sc.Expected.Assigned)
	}
	if failed != sc.Expected.Failed {
		t.Errorf("%s: %d rides failed, want %d", sc.Name, failed, sc.Expected.Failed)
	}

	stats := engine.GetStats()
	if stats.TotalRequests != len(sc.Rides) {
		t.Errorf("%s: stats recorded %d requests, want %d", sc.Name, stats.TotalRequests, len(sc.Rides))
	}
	if stats.SuccessfulAssignments != assigned {
		t.Errorf("%s: stats recorded %d assignments, want %d", sc.Name, stats.SuccessfulAssignments, assigned)
	}
}
