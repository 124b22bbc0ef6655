// Package scenarios runs declarative dispatch scenarios used for QA. A
// scenario describes a fleet, a series of ride requests and the expected
// outcome counts.
package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veeo/driver-dispatch/core/model"
)

type DriverDef struct {
	ID          string  `yaml:"id"`
	Lat         float64 `yaml:"lat"`
	Lng         float64 `yaml:"lng"`
	Rating      float64 `yaml:"rating"`
	TotalRides  int     `yaml:"total_rides"`
	VehicleType string  `yaml:"vehicle_type"`
}

func (d DriverDef) ToModel() model.Driver {
	vt := d.VehicleType
	if vt == "" {
		vt = "standard"
	}
	rating := d.Rating
	if rating == 0 {
		rating = 4.5
	}
	return model.Driver{
		ID:          d.ID,
		Status:      model.StatusAvailable,
		VehicleType: vt,
		Rating:      rating,
		TotalRides:  d.TotalRides,
		IsActive:    true,
		FCMToken:    "token-" + d.ID,
		Location:    &model.Location{Lat: d.Lat, Lng: d.Lng, UpdatedAt: time.Now()},
	}
}

type RideDef struct {
	ID         string  `yaml:"id"`
	CustomerID string  `yaml:"customer_id"`
	PickupLat  float64 `yaml:"pickup_lat"`
	PickupLng  float64 `yaml:"pickup_lng"`
	DropoffLat float64 `yaml:"dropoff_lat"`
	DropoffLng float64 `yaml:"dropoff_lng"`
}

func (r RideDef) ToModel() model.RideRequest {
	customer := r.CustomerID
	if customer == "" {
		customer = "customer-" + r.ID
	}
	return model.RideRequest{
		ID:          r.ID,
		CustomerID:  customer,
		VehicleType: "standard",
		Pickup:      model.Stop{Address: "pickup-" + r.ID, Lat: r.PickupLat, Lng: r.PickupLng},
		Dropoff:     model.Stop{Address: "dropoff-" + r.ID, Lat: r.DropoffLat, Lng: r.DropoffLng},
	}
}

type Expected struct {
	Assigned int `yaml:"assigned"`
	Failed   int `yaml:"failed"`
	// Drivers optionally pins which driver each ride must get, keyed by
	// ride id.
	Drivers map[string]string `yaml:"drivers,omitempty"`
}

type Scenario struct {
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description,omitempty"`
	Strategy     string      `yaml:"strategy,omitempty"`
	SearchRadius float64     `yaml:"search_radius_km,omitempty"`
	MaxRadius    float64     `yaml:"max_search_radius_km,omitempty"`
	MaxAttempts  int         `yaml:"max_search_attempts,omitempty"`
	DeclineRides []string    `yaml:"decline_rides,omitempty"`
	Drivers      []DriverDef `yaml:"drivers"`
	Rides        []RideDef   `yaml:"rides"`
	Expected     Expected    `yaml:"expected"`
}

// Parse decodes a scenario from YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
