package metrics

import (
	"time"

	"github.com/veeo/driver-dispatch/core/model"
)

// AssignmentRecord represents the terminal outcome of one ride search.
type AssignmentRecord struct {
	RequestID        string
	DriverID         string
	Strategy         string
	Success          bool
	FailureReason    string
	DistanceKm       float64
	EstimatedArrival int
	Attempts         int
	FinalRadiusKm    float64
	SearchTime       time.Duration
	Time             time.Time
}

// AssignmentSink records completed ride searches for observability purposes.
type AssignmentSink interface {
	RecordAssignment(records []AssignmentRecord) error
}

// NotificationEvent captures one notification sent to a recipient.
type NotificationEvent struct {
	NotificationID string
	RecipientID    string
	RecipientType  model.RecipientType
	Channel        model.NotificationChannel
	Type           model.NotificationType
	Delivered      bool
	Error          string
	Time           time.Time
}

// NotificationRecorder records notification delivery attempts.
type NotificationRecorder interface {
	RecordNotification(ev NotificationEvent) error
}

// SearchEvent captures one search attempt, including radius expansions.
type SearchEvent struct {
	RequestID string
	Strategy  string
	RadiusKm  float64
	Attempt   int
	Expanded  bool
	Time      time.Time
}

// SearchRecorder records per-attempt search events.
type SearchRecorder interface {
	RecordSearch(ev SearchEvent) error
}

// DriverStatusEvent is a snapshot of a driver status transition.
type DriverStatusEvent struct {
	DriverID  string
	OldStatus model.DriverStatus
	NewStatus model.DriverStatus
	Time      time.Time
}

// DriverStatusRecorder records driver status transitions.
type DriverStatusRecorder interface {
	RecordDriverStatus(ev DriverStatusEvent) error
}

// RideStatusEvent captures a ride lifecycle transition.
type RideStatusEvent struct {
	RequestID string
	DriverID  string
	OldStatus model.RideStatus
	NewStatus model.RideStatus
	Time      time.Time
}

// RideStatusRecorder records ride lifecycle transitions.
type RideStatusRecorder interface {
	RecordRideStatus(ev RideStatusEvent) error
}

// ResponseLatency represents the time a driver took to answer an offer.
type ResponseLatency struct {
	DriverID string
	Accepted bool
	Latency  time.Duration
}

// LatencyRecorder is implemented by sinks able to record driver response latency.
type LatencyRecorder interface {
	RecordResponseLatency(latencies []ResponseLatency) error
}

// FleetSizeRecorder records the number of registered drivers.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements AssignmentSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment([]AssignmentRecord) error { return nil }

func (NopSink) RecordNotification(NotificationEvent) error { return nil }
func (NopSink) RecordSearch(SearchEvent) error             { return nil }
func (NopSink) RecordDriverStatus(DriverStatusEvent) error { return nil }
func (NopSink) RecordRideStatus(RideStatusEvent) error     { return nil }

// Ensure NopSink implements LatencyRecorder.
func (NopSink) RecordResponseLatency([]ResponseLatency) error { return nil }

// Ensure NopSink implements FleetSizeRecorder.
func (NopSink) RecordFleetSize(int) error { return nil }
