package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.AssignmentSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAssignment writes terminal search outcomes as line protocol events.
func (s *InfluxSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("assignment_event").
			AddTag("request_id", r.RequestID).
			AddTag("driver_id", r.DriverID).
			AddTag("strategy", r.Strategy).
			AddTag("success", strconv.FormatBool(r.Success)).
			AddTag("component", "dispatch_engine").
			AddField("distance_km", round3(r.DistanceKm)).
			AddField("estimated_arrival", r.EstimatedArrival).
			AddField("attempts", r.Attempts).
			AddField("final_radius_km", round3(r.FinalRadiusKm)).
			AddField("search_time_ms", r.SearchTime.Milliseconds()).
			SetTime(r.Time)
		if r.FailureReason != "" {
			p.AddTag("reason", r.FailureReason)
		}
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordNotification persists one delivery attempt.
func (s *InfluxSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("notification_event").
		AddTag("recipient_id", ev.RecipientID).
		AddTag("recipient_type", string(ev.RecipientType)).
		AddTag("channel", string(ev.Channel)).
		AddTag("type", string(ev.Type)).
		AddTag("delivered", strconv.FormatBool(ev.Delivered)).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSearch persists one search attempt.
func (s *InfluxSink) RecordSearch(ev coremetrics.SearchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_event").
		AddTag("request_id", ev.RequestID).
		AddTag("strategy", ev.Strategy).
		AddTag("expanded", strconv.FormatBool(ev.Expanded)).
		AddField("radius_km", round3(ev.RadiusKm)).
		AddField("attempt", ev.Attempt).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDriverStatus persists a driver status transition.
func (s *InfluxSink) RecordDriverStatus(ev coremetrics.DriverStatusEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("driver_status_event").
		AddTag("driver_id", ev.DriverID).
		AddTag("old_status", string(ev.OldStatus)).
		AddTag("new_status", string(ev.NewStatus)).
		AddField("value", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRideStatus persists a ride lifecycle transition.
func (s *InfluxSink) RecordRideStatus(ev coremetrics.RideStatusEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ride_status_event").
		AddTag("request_id", ev.RequestID).
		AddTag("driver_id", ev.DriverID).
		AddTag("old_status", string(ev.OldStatus)).
		AddTag("new_status", string(ev.NewStatus)).
		AddField("value", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordResponseLatency persists driver response latencies.
func (s *InfluxSink) RecordResponseLatency(recs []coremetrics.ResponseLatency) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("driver_response_latency").
			AddTag("driver_id", r.DriverID).
			AddTag("accepted", strconv.FormatBool(r.Accepted)).
			AddField("latency_ms", r.Latency.Milliseconds()).
			SetTime(time.Now())
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordFleetSize persists the registered driver count.
func (s *InfluxSink) RecordFleetSize(size int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fleet_size").
		AddField("drivers", size).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
