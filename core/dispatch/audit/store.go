// Package audit persists terminal dispatch outcomes for later inspection.
package audit

import (
	"context"
	"time"
)

// Record captures one terminal search outcome.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	TenantID         string    `json:"tenant_id,omitempty"`
	DriverID         string    `json:"driver_id,omitempty"`
	Strategy         string    `json:"strategy"`
	Success          bool      `json:"success"`
	Reason           string    `json:"reason,omitempty"`
	Attempts         int       `json:"attempts"`
	FinalRadiusKm    float64   `json:"final_radius_km"`
	DistanceKm       float64   `json:"distance_km,omitempty"`
	EstimatedArrival int       `json:"estimated_arrival,omitempty"`
	SearchTimeMs     int64     `json:"search_time_ms"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start        time.Time
	End          time.Time
	RequestID    string
	DriverID     string
	FailuresOnly bool
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
