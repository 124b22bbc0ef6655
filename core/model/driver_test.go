package model

import "testing"

func TestDriverValidate(t *testing.T) {
	d := Driver{ID: "d1", Rating: 4.5}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Rating = 5.5
	if err := d.Validate(); err == nil {
		t.Fatal("expected rating error")
	}
	d = Driver{Rating: 4}
	if err := d.Validate(); err == nil {
		t.Fatal("expected id error")
	}
}

func TestRideStatusCarriesDriver(t *testing.T) {
	carrying := []RideStatus{RideAssigned, RideDriverAccepted, RideDriverEnRoute, RideDriverArrived, RideInProgress}
	for _, s := range carrying {
		if !s.CarriesDriver() {
			t.Errorf("%s should carry a driver", s)
		}
	}
	for _, s := range []RideStatus{RidePending, RideSearching, RideDriverDeclined, RideCompleted, RideCancelled, RideNoDriver} {
		if s.CarriesDriver() {
			t.Errorf("%s should not carry a driver", s)
		}
	}
}

func TestDriverFullName(t *testing.T) {
	d := Driver{FirstName: "Ana", LastName: "Costa"}
	if d.FullName() != "Ana Costa" {
		t.Fatalf("got %q", d.FullName())
	}
	d = Driver{FirstName: "Ana"}
	if d.FullName() != "Ana" {
		t.Fatalf("got %q", d.FullName())
	}
}
