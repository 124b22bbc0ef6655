package model

import (
	"errors"
	"time"
)

var (
	errEmptyID     = errors.New("id must not be empty")
	errRatingRange = errors.New("rating must be between 0 and 5")
)

// RideStatus is the lifecycle state of a ride request.
type RideStatus string

const (
	RidePending        RideStatus = "pending"
	RideSearching      RideStatus = "searching"
	RideAssigned       RideStatus = "assigned"
	RideDriverAccepted RideStatus = "driver_accepted"
	RideDriverDeclined RideStatus = "driver_declined"
	RideDriverEnRoute  RideStatus = "driver_en_route"
	RideDriverArrived  RideStatus = "driver_arrived"
	RideInProgress     RideStatus = "in_progress"
	RideCompleted      RideStatus = "completed"
	RideCancelled      RideStatus = "cancelled"
	RideNoDriver       RideStatus = "no_driver"
)

// CarriesDriver reports whether a request in this status is allowed to hold
// an assigned driver id.
func (s RideStatus) CarriesDriver() bool {
	switch s {
	case RideAssigned, RideDriverAccepted, RideDriverEnRoute, RideDriverArrived, RideInProgress:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends the request lifecycle.
func (s RideStatus) Terminal() bool {
	switch s {
	case RideCompleted, RideCancelled, RideNoDriver:
		return true
	default:
		return false
	}
}

// Stop is an address with coordinates along a ride.
type Stop struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// RideRequest is a booking submitted to the dispatch engine. The engine owns
// the request from submission until a terminal status removes it from the
// pending set. Price, distance and duration estimates are supplied by the
// external pricing subsystem and never computed here.
type RideRequest struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`

	Pickup  Stop   `json:"pickup"`
	Dropoff Stop   `json:"dropoff"`
	Stops   []Stop `json:"stops,omitempty"`

	VehicleType string `json:"vehicle_type"`
	Passengers  int    `json:"passengers"`
	Luggage     int    `json:"luggage"`

	EstimatedPrice    float64 `json:"estimated_price"`
	EstimatedDistance float64 `json:"estimated_distance"`
	EstimatedDuration float64 `json:"estimated_duration"`

	RequestedAt  time.Time  `json:"requested_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	Status           RideStatus `json:"status"`
	AssignedDriverID string     `json:"assigned_driver_id,omitempty"`

	CustomerNotes string `json:"customer_notes,omitempty"`
	InternalNotes string `json:"internal_notes,omitempty"`
}

// Validate checks that the request can enter dispatch.
func (r RideRequest) Validate() error {
	if r.ID == "" {
		return errEmptyID
	}
	return nil
}

// CancelledBy identifies which party cancelled a ride.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByDriver   CancelledBy = "driver"
	CancelledBySystem   CancelledBy = "system"
)
