package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	searchLatency    *prometheus.HistogramVec
	ridesAssigned    *prometheus.CounterVec
	searchFailures   *prometheus.CounterVec
	radiusExpansions prometheus.Counter
	activeSearches   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Gauge) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ride_search_duration_seconds",
			Help:    "Duration of driver searches from submission to terminal outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	assigned := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rides_assigned_total",
			Help: "Number of ride requests assigned to a driver",
		},
		[]string{"strategy"},
	)
	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_search_failures_total",
			Help: "Number of ride requests that exhausted all search attempts",
		},
		[]string{"strategy"},
	)
	exp := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_radius_expansions_total",
			Help: "Number of search radius expansions across all requests",
		},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_ride_searches",
			Help: "Number of ride searches currently in flight",
		},
	)
	return lat, assigned, failed, exp, active
}

func init() {
	searchLatency, ridesAssigned, searchFailures, radiusExpansions, activeSearches = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(searchLatency, ridesAssigned, searchFailures, radiusExpansions, activeSearches)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	searchLatency, ridesAssigned, searchFailures, radiusExpansions, activeSearches = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
