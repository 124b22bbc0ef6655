package geo

import (
	"math"
	"testing"
	"time"

	"github.com/veeo/driver-dispatch/core/model"
)

func locatedDriver(id string, lat, lng float64) model.Driver {
	return model.Driver{
		ID:          id,
		Status:      model.StatusAvailable,
		VehicleType: "standard",
		IsActive:    true,
		Location:    &model.Location{Lat: lat, Lng: lng, UpdatedAt: time.Now()},
	}
}

func TestDistanceKmZero(t *testing.T) {
	if d := DistanceKm(48.583, 7.745, 48.583, 7.745); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKmKnownPair(t *testing.T) {
	// Strasbourg cathedral to Strasbourg station is roughly 1.2 km.
	d := DistanceKm(48.5819, 7.7509, 48.5846, 7.7348)
	if d < 1.0 || d > 1.5 {
		t.Fatalf("implausible distance %f", d)
	}
}

func TestETAMinutes(t *testing.T) {
	if got := ETAMinutes(15, 30); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	if got := ETAMinutes(10, 0); got != 20 {
		t.Fatalf("default speed fallback: expected 20, got %d", got)
	}
}

func TestFindNearestDriversSortedAndBounded(t *testing.T) {
	drivers := []model.Driver{
		locatedDriver("far", 48.7, 7.745),
		locatedDriver("near", 48.584, 7.745),
		locatedDriver("mid", 48.60, 7.745),
	}
	got := FindNearestDrivers(48.583, 7.745, drivers, SearchOptions{MaxDistanceKm: 50, MaxResults: 2})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Driver.ID != "near" || got[1].Driver.ID != "mid" {
		t.Fatalf("wrong order: %s, %s", got[0].Driver.ID, got[1].Driver.ID)
	}
	for _, c := range got {
		if c.DistanceKm > 50 {
			t.Fatalf("candidate beyond max distance: %f", c.DistanceKm)
		}
	}
}

func TestFindNearestDriversFilters(t *testing.T) {
	inactive := locatedDriver("inactive", 48.583, 7.745)
	inactive.IsActive = false
	busy := locatedDriver("busy", 48.583, 7.745)
	busy.Status = model.StatusBusy
	noLoc := locatedDriver("noloc", 48.583, 7.745)
	noLoc.Location = nil
	van := locatedDriver("van", 48.583, 7.745)
	van.VehicleType = "van"
	ok := locatedDriver("ok", 48.583, 7.745)

	got := FindNearestDrivers(48.583, 7.745, []model.Driver{inactive, busy, noLoc, van, ok},
		SearchOptions{MaxDistanceKm: 5, VehicleType: "standard"})
	if len(got) != 1 || got[0].Driver.ID != "ok" {
		t.Fatalf("expected only ok, got %v", got)
	}
	if got[0].DistanceKm != 0 || got[0].EstimatedArrival != 0 {
		t.Fatalf("expected zero distance and ETA, got %f/%d", got[0].DistanceKm, got[0].EstimatedArrival)
	}
}

func TestInWorkArea(t *testing.T) {
	d := locatedDriver("d1", 48.60, 7.745)
	if !InWorkArea(d, 48.583, 7.745, 5) {
		t.Fatal("expected inside work area")
	}
	if InWorkArea(d, 48.583, 7.745, 1) {
		t.Fatal("expected outside work area")
	}
	d.Location = nil
	if InWorkArea(d, 48.583, 7.745, 100) {
		t.Fatal("driver without location is never inside")
	}
}

func TestBoxAround(t *testing.T) {
	box := BoxAround(48.583, 7.745, 11.1)
	if math.Abs(box.MaxLat-box.MinLat-0.2) > 1e-9 {
		t.Fatalf("latitude span: %f", box.MaxLat-box.MinLat)
	}
	if box.MaxLng-box.MinLng <= 0.2 {
		t.Fatalf("longitude span should widen with latitude, got %f", box.MaxLng-box.MinLng)
	}
}
