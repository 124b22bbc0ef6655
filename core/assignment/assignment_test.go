package assignment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeo/driver-dispatch/core/model"
)

func testDriver(id string, lat, lng, rating float64, rides int) model.Driver {
	return model.Driver{
		ID:          id,
		Status:      model.StatusAvailable,
		VehicleType: "standard",
		Rating:      rating,
		TotalRides:  rides,
		IsActive:    true,
		Location:    &model.Location{Lat: lat, Lng: lng, UpdatedAt: time.Now()},
	}
}

func testRide(lat, lng float64) model.RideRequest {
	return model.RideRequest{
		ID:          "r1",
		VehicleType: "standard",
		Pickup:      model.Stop{Address: "pickup", Lat: lat, Lng: lng},
		Dropoff:     model.Stop{Address: "dropoff", Lat: lat + 0.05, Lng: lng},
	}
}

func params(radius float64) Params {
	return Params{SearchRadiusKm: radius, MaxSearchRadiusKm: 15, MaxDriversToNotify: 5}
}

func TestProximitySelectsColocatedDriver(t *testing.T) {
	d1 := testDriver("d1", 48.583, 7.745, 4.5, 10)
	res := Proximity{}.FindDriver(testRide(48.583, 7.745), []model.Driver{d1}, params(5))
	require.True(t, res.Success)
	require.NotNil(t, res.Driver)
	assert.Equal(t, "d1", res.Driver.ID)
	assert.InDelta(t, 0, res.DistanceKm, 1e-9)
	assert.Equal(t, 0, res.EstimatedArrival)
}

func TestProximityFailsOutsideRadius(t *testing.T) {
	far := testDriver("far", 48.7, 7.745, 4.5, 10) // ~13 km north
	res := Proximity{}.FindDriver(testRide(48.583, 7.745), []model.Driver{far}, params(5))
	require.False(t, res.Success)
	assert.Equal(t, "No drivers available within search radius", res.Reason)
}

func TestRatingPrefersBestRated(t *testing.T) {
	// Two drivers equidistant from the pickup, ratings 4.2 and 4.8.
	a := testDriver("a", 48.593, 7.745, 4.2, 100)
	b := testDriver("b", 48.573, 7.745, 4.8, 100)
	res := Rating{}.FindDriver(testRide(48.583, 7.745), []model.Driver{a, b}, params(10))
	require.True(t, res.Success)
	assert.Equal(t, "b", res.Driver.ID)
}

func TestBalancedScoreFormula(t *testing.T) {
	got := Score(2, 4, 4.0, 50, 100)
	want := 0.5*0.4 + 0.8*0.3 + 0.5*0.3
	assert.InDelta(t, want, got, 1e-12)

	// Degenerate pool where every candidate sits at the pickup point.
	assert.InDelta(t, 0.4+0.3+0.3, Score(0, 0, 5, 0, 1), 1e-12)
}

func TestBalancedFavorsFairness(t *testing.T) {
	// Same spot, same rating; the driver with fewer completed rides wins.
	veteran := testDriver("veteran", 48.583, 7.745, 4.5, 500)
	rookie := testDriver("rookie", 48.583, 7.745, 4.5, 5)
	res := Balanced{}.FindDriver(testRide(48.583, 7.745), []model.Driver{veteran, rookie}, params(5))
	require.True(t, res.Success)
	assert.Equal(t, "rookie", res.Driver.ID)
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Add("first")
	q.Add("second")
	q.Add("first") // duplicate ignored
	assert.Equal(t, []string{"first", "second"}, q.Snapshot())

	first := testDriver("first", 48.585, 7.745, 3.0, 10)
	second := testDriver("second", 48.583, 7.745, 5.0, 0)
	res := q.FindDriver(testRide(48.583, 7.745), []model.Driver{second, first}, params(5))
	require.True(t, res.Success)
	assert.Equal(t, "first", res.Driver.ID, "queue order beats distance and rating")
	assert.Equal(t, int(math.Round(res.DistanceKm/30*60)), res.EstimatedArrival)
}

func TestQueueSkipsIneligible(t *testing.T) {
	q := NewQueue()
	q.Add("busy")
	q.Add("ok")
	busy := testDriver("busy", 48.583, 7.745, 4.0, 1)
	busy.Status = model.StatusBusy
	ok := testDriver("ok", 48.584, 7.745, 4.0, 1)
	res := q.FindDriver(testRide(48.583, 7.745), []model.Driver{busy, ok}, params(5))
	require.True(t, res.Success)
	assert.Equal(t, "ok", res.Driver.ID)

	q.Remove("ok")
	res = q.FindDriver(testRide(48.583, 7.745), []model.Driver{busy, ok}, params(5))
	require.False(t, res.Success)
	assert.Equal(t, "No eligible drivers in queue", res.Reason)
}

func TestQueueRespectsMaxRadius(t *testing.T) {
	q := NewQueue()
	q.Add("far")
	far := testDriver("far", 48.8, 7.745, 4.0, 1) // ~24 km away
	res := q.FindDriver(testRide(48.583, 7.745), []model.Driver{far}, params(5))
	require.False(t, res.Success)
}

func TestAutoFallsBackToProximity(t *testing.T) {
	a := NewAuto(StrategyName("bogus"))
	d1 := testDriver("d1", 48.583, 7.745, 4.5, 10)
	res := a.FindDriver(testRide(48.583, 7.745), []model.Driver{d1}, params(5))
	require.True(t, res.Success)
	assert.Equal(t, "d1", res.Driver.ID)
}

func TestAutoSharesQueueState(t *testing.T) {
	a := NewAuto(StrategyQueue)
	a.Queue().Add("d1")
	d1 := testDriver("d1", 48.583, 7.745, 4.5, 10)
	res := a.FindDriver(testRide(48.583, 7.745), []model.Driver{d1}, params(5))
	require.True(t, res.Success)

	a.SetStrategy(StrategyNearest)
	a.SetStrategy(StrategyQueue)
	res = a.FindDriver(testRide(48.583, 7.745), []model.Driver{d1}, params(5))
	require.True(t, res.Success, "queue membership survives strategy switches")
}
