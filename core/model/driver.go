package model

import "time"

// DriverStatus describes the availability state of a driver.
type DriverStatus string

const (
	StatusAvailable   DriverStatus = "available"
	StatusBusy        DriverStatus = "busy"
	StatusOffline     DriverStatus = "offline"
	StatusOnBreak     DriverStatus = "on_break"
	StatusGoingPickup DriverStatus = "going_pickup"
)

// Valid reports whether s is a known driver status.
func (s DriverStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOffline, StatusOnBreak, StatusGoingPickup:
		return true
	default:
		return false
	}
}

// Location is a GPS fix with the time it was reported.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkHours bounds the daily window a driver accepts rides in ("08:00"–"20:00").
type WorkHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Preferences captures per-driver dispatch opt-ins.
type Preferences struct {
	AcceptsAirport      bool       `json:"accepts_airport"`
	AcceptsLongDistance bool       `json:"accepts_long_distance"`
	MaxDistanceKm       float64    `json:"max_distance_km"`
	WorkHours           *WorkHours `json:"work_hours,omitempty"`
}

// Driver represents a driver registered with a tenant fleet. The registry in
// core/driver is the single owner of Driver records; callers receive copies.
type Driver struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	Status       DriverStatus `json:"status"`
	VehicleType  string       `json:"vehicle_type"`
	VehiclePlate string       `json:"vehicle_plate"`
	Rating       float64      `json:"rating"` // 0..5
	TotalRides   int          `json:"total_rides"`

	Location *Location `json:"location,omitempty"`

	FCMToken  string `json:"fcm_token,omitempty"`
	APNSToken string `json:"apns_token,omitempty"`

	Preferences Preferences `json:"preferences"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the driver record is sound.
func (d Driver) Validate() error {
	if d.ID == "" {
		return errEmptyID
	}
	if d.Rating < 0 || d.Rating > 5 {
		return errRatingRange
	}
	return nil
}

// HasLocation reports whether the driver has reported a position.
func (d Driver) HasLocation() bool { return d.Location != nil }

// HasPushToken reports whether at least one push delivery token is set.
func (d Driver) HasPushToken() bool { return d.FCMToken != "" || d.APNSToken != "" }

// FullName joins first and last name for display in notifications.
func (d Driver) FullName() string {
	if d.FirstName == "" {
		return d.LastName
	}
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}
