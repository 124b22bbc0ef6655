// Command simulator exercises the dispatch engine against a synthetic fleet.
// It seeds random drivers around a city center, submits a stream of ride
// requests and prints the engine statistics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/veeo/driver-dispatch/core/assignment"
	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/infra/logger"
	"github.com/veeo/driver-dispatch/infra/notify"
)

const (
	centerLat = 48.5839
	centerLng = 7.7455
)

func main() {
	drivers := flag.Int("drivers", 20, "number of synthetic drivers")
	rides := flag.Int("rides", 50, "number of ride requests to submit")
	spreadKm := flag.Float64("spread", 8, "how far from the center drivers and pickups are placed, in km")
	strategy := flag.String("strategy", "nearest", "assignment strategy")
	interval := flag.Duration("interval", 50*time.Millisecond, "delay between ride submissions")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logg := logger.New("simulator")
	rng := rand.New(rand.NewSource(*seed))

	fleet := driver.NewManager()
	for i := 0; i < *drivers; i++ {
		lat, lng := jitter(rng, *spreadKm)
		fleet.Upsert(model.Driver{
			ID:          fmt.Sprintf("sim-driver-%03d", i),
			FirstName:   "Sim",
			LastName:    fmt.Sprintf("Driver %d", i),
			Status:      model.StatusAvailable,
			VehicleType: "standard",
			Rating:      3.5 + rng.Float64()*1.5,
			TotalRides:  rng.Intn(500),
			IsActive:    true,
			Location:    &model.Location{Lat: lat, Lng: lng, UpdatedAt: time.Now()},
		})
	}

	notifier := notification.NewService(notification.WithLogger(logg))
	notifier.RegisterProvider(model.ChannelPush, notify.NewDevLogProvider(model.ChannelPush, logg))

	cfg := dispatch.Config{AssignmentStrategy: assignment.StrategyName(*strategy), EnablePush: true}
	engine, err := dispatch.NewEngine(cfg, fleet, notifier, dispatch.Options{Logger: logg})
	if err != nil {
		logg.Errorf("engine: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for i := 0; i < *rides; i++ {
		pickLat, pickLng := jitter(rng, *spreadKm)
		dropLat, dropLng := jitter(rng, *spreadKm)
		res, err := engine.SubmitRideRequest(ctx, model.RideRequest{
			ID:          fmt.Sprintf("sim-ride-%04d", i),
			CustomerID:  fmt.Sprintf("sim-customer-%04d", i),
			VehicleType: "standard",
			Pickup:      model.Stop{Address: "pickup", Lat: pickLat, Lng: pickLng},
			Dropoff:     model.Stop{Address: "dropoff", Lat: dropLat, Lng: dropLng},
		})
		if err != nil {
			logg.Errorf("submit: %v", err)
			continue
		}
		if res.Success {
			// Drivers accept and complete instantly so the fleet cycles.
			engine.AcceptRide(ctx, res.AssignedDriver.ID, res.RequestID)
			engine.UpdateRideStatus(res.RequestID, model.RideCompleted)
		}
		time.Sleep(*interval)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(engine.GetStats()); err != nil {
		logg.Errorf("encode stats: %v", err)
	}
}

// jitter returns a point uniformly offset from the center by up to spread km
// in each axis.
func jitter(rng *rand.Rand, spreadKm float64) (float64, float64) {
	// 1 degree of latitude is ~111 km; longitude is corrected for latitude.
	latOff := (rng.Float64()*2 - 1) * spreadKm / 111.0
	lngOff := (rng.Float64()*2 - 1) * spreadKm / 73.5
	return centerLat + latOff, centerLng + lngOff
}
