// Package metrics provides sink implementations for dispatch observability:
// Prometheus, InfluxDB, a fan-out MultiSink and an event-bus collector.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	assignments   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	fleet         prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.AssignmentSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.AssignmentSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_outcomes_total",
		Help: "Total number of terminal assignment outcomes",
	}, []string{"strategy", "success"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Total number of notification delivery attempts",
	}, []string{"channel", "type", "delivered"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driver_response_latency_seconds",
		Help:    "Time between driver notification and driver response",
		Buckets: prometheus.DefBuckets,
	}, []string{"accepted"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registered_drivers_total",
		Help: "Number of drivers registered in the fleet",
	})

	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(notifications); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			notifications = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(fleet); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fleet = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		assignments:   assignments,
		notifications: notifications,
		latency:       latency,
		fleet:         fleet,
	}, nil
}

// RecordAssignment increments the outcome counter for each record.
func (s *PromSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	for _, r := range recs {
		s.assignments.WithLabelValues(r.Strategy, strconv.FormatBool(r.Success)).Inc()
	}
	return nil
}

// RecordNotification increments the delivery counter.
func (s *PromSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.notifications.WithLabelValues(string(ev.Channel), string(ev.Type), strconv.FormatBool(ev.Delivered)).Inc()
	return nil
}

// RecordResponseLatency records the driver response histogram.
func (s *PromSink) RecordResponseLatency(recs []coremetrics.ResponseLatency) error {
	for _, r := range recs {
		s.latency.WithLabelValues(strconv.FormatBool(r.Accepted)).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordFleetSize sets the fleet gauge.
func (s *PromSink) RecordFleetSize(size int) error {
	s.fleet.Set(float64(size))
	return nil
}
