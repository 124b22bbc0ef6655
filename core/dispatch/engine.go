// Package dispatch orchestrates the ride-request lifecycle: driver search
// with progressive radius expansion, driver notification, acceptance,
// decline, cancellation and aggregate statistics.
package dispatch

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/veeo/driver-dispatch/core/assignment"
	"github.com/veeo/driver-dispatch/core/dispatch/audit"
	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/metrics"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/internal/eventbus"
)

// Notifier is the delivery boundary the engine calls to request
// notifications. Delivery failures are the notifier's concern; the engine
// logs them and never fails a granted assignment over one.
type Notifier interface {
	NotifyNewRide(ctx context.Context, d model.Driver, ride model.RideRequest) (*model.Notification, error)
	NotifyDriverEnRoute(ctx context.Context, customerID string, d model.Driver, etaMinutes int) (*model.Notification, error)
	NotifyRideCancelled(ctx context.Context, recipientID string, recipientType model.RecipientType, reason string) (*model.Notification, error)
}

// SubmitResult is the terminal outcome of one submitted ride request.
type SubmitResult struct {
	Success          bool          `json:"success"`
	RequestID        string        `json:"request_id"`
	AssignedDriver   *model.Driver `json:"assigned_driver,omitempty"`
	DistanceKm       float64       `json:"distance_km,omitempty"`
	EstimatedArrival int           `json:"estimated_arrival,omitempty"`
	Attempts         int           `json:"attempts"`
	Error            string        `json:"error,omitempty"`
}

const (
	failNoDrivers = "No available drivers found"
	failCancelled = "Request cancelled"

	// The customer-facing en-route ETA is a fixed estimate until driver
	// position streaming lands.
	enRouteETAMinutes = 10
)

// Options carries the optional collaborators of an Engine.
type Options struct {
	Sink   metrics.AssignmentSink
	Bus    *eventbus.Bus
	Audit  audit.Store
	Logger logger.Logger
}

// Engine owns the pending-request set and drives the dispatch state machine.
type Engine struct {
	fleet    *driver.Manager
	strategy *assignment.Auto
	notifier Notifier
	sink     metrics.AssignmentSink
	bus      *eventbus.Bus
	audit    audit.Store
	log      logger.Logger

	cfgMu sync.RWMutex
	cfg   Config

	mu         sync.Mutex
	pending    map[string]*model.RideRequest
	autoAccept map[string]chan struct{}

	stats statsTracker
	subs  *subscribers
}

// NewEngine builds an engine around the given fleet and notifier. Zero
// fields of cfg are defaulted; an invalid configuration is the only error.
func NewEngine(cfg Config, fleet *driver.Manager, notifier Notifier, opts Options) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Sink == nil {
		opts.Sink = metrics.NopSink{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Engine{
		fleet:      fleet,
		strategy:   assignment.NewAuto(cfg.AssignmentStrategy),
		notifier:   notifier,
		sink:       opts.Sink,
		bus:        opts.Bus,
		audit:      opts.Audit,
		log:        opts.Logger,
		cfg:        cfg,
		pending:    make(map[string]*model.RideRequest),
		autoAccept: make(map[string]chan struct{}),
		subs:       newSubscribers(),
	}, nil
}

// Fleet returns the driver registry the engine dispatches against.
func (e *Engine) Fleet() *driver.Manager { return e.fleet }

// Notifier returns the notification sender the engine delivers offers through.
func (e *Engine) Notifier() Notifier { return e.notifier }

// Strategy returns the assignment selector, exposing the queue for callers
// managing queue-based dispatch membership.
func (e *Engine) Strategy() *assignment.Auto { return e.strategy }

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetConfig swaps the active configuration. In-flight searches keep the
// snapshot they started with.
func (e *Engine) SetConfig(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
	e.strategy.SetStrategy(cfg.AssignmentStrategy)
	return nil
}

// Subscribe registers a synchronous event callback and returns its
// unsubscribe handle.
func (e *Engine) Subscribe(fn func(Event)) func() {
	return e.subs.add(fn)
}

// SubmitRideRequest registers the request and searches for a driver,
// expanding the radius on each failed attempt. The returned result is
// terminal; an error is returned only for an invalid request.
func (e *Engine) SubmitRideRequest(ctx context.Context, req model.RideRequest) (SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return SubmitResult{}, err
	}
	cfg := e.Config()

	r := req
	r.Status = model.RideSearching
	e.mu.Lock()
	e.pending[r.ID] = &r
	e.mu.Unlock()

	e.stats.recordSubmission()
	activeSearches.Inc()
	defer activeSearches.Dec()

	e.emit(Event{Type: EventSearchStarted, RequestID: r.ID, Timestamp: time.Now()})
	e.log.Infof("search started for request %s (strategy=%s)", r.ID, cfg.AssignmentStrategy)

	return e.search(ctx, cfg, &r, ""), nil
}

// search runs the radius-expansion loop for one request. excludeID removes a
// driver from consideration, used when reassigning after a decline.
func (e *Engine) search(ctx context.Context, cfg Config, r *model.RideRequest, excludeID string) SubmitResult {
	strategyLabel := string(cfg.AssignmentStrategy)
	radius := cfg.SearchRadiusKm
	start := time.Now()

	attempt := 0
	for attempt < cfg.MaxSearchAttempts {
		attempt++

		available := e.fleet.ListAvailable()
		if excludeID != "" {
			kept := available[:0]
			for _, d := range available {
				if d.ID != excludeID {
					kept = append(kept, d)
				}
			}
			available = kept
		}

		res := e.strategy.FindDriver(*r, available, cfg.Params(radius))
		if rec, ok := e.sink.(metrics.SearchRecorder); ok {
			_ = rec.RecordSearch(metrics.SearchEvent{
				RequestID: r.ID,
				Strategy:  strategyLabel,
				RadiusKm:  radius,
				Attempt:   attempt,
				Expanded:  attempt > 1,
				Time:      time.Now(),
			})
		}

		if res.Success && res.Driver != nil {
			d := *res.Driver
			e.notifyDriver(ctx, cfg, d, *r)
			e.emit(Event{Type: EventDriverNotified, RequestID: r.ID, DriverID: d.ID, Timestamp: time.Now()})

			if cfg.AutoAcceptEnabled {
				if !e.waitAutoAccept(ctx, r.ID, cfg.AutoAcceptDelay()) {
					return e.finishCancelled(r, strategyLabel, attempt, radius, start)
				}
			}

			e.mu.Lock()
			if r.Status == model.RideCancelled {
				e.mu.Unlock()
				return e.finishCancelled(r, strategyLabel, attempt, radius, start)
			}
			r.Status = model.RideAssigned
			r.AssignedDriverID = d.ID
			e.mu.Unlock()

			e.fleet.UpdateStatus(d.ID, model.StatusBusy)
			e.emit(Event{Type: EventDriverAssigned, RequestID: r.ID, DriverID: d.ID, Timestamp: time.Now()})
			e.emit(Event{Type: EventSearchCompleted, RequestID: r.ID, DriverID: d.ID, Timestamp: time.Now(), Data: map[string]any{
				"distance_km":       res.DistanceKm,
				"estimated_arrival": res.EstimatedArrival,
				"attempts":          attempt,
			}})

			elapsed := time.Since(start)
			e.stats.recordOutcome(true, elapsed)
			ridesAssigned.WithLabelValues(strategyLabel).Inc()
			searchLatency.WithLabelValues(strategyLabel).Observe(elapsed.Seconds())
			e.recordAssignment(ctx, metrics.AssignmentRecord{
				RequestID:        r.ID,
				DriverID:         d.ID,
				Strategy:         strategyLabel,
				Success:          true,
				DistanceKm:       res.DistanceKm,
				EstimatedArrival: res.EstimatedArrival,
				Attempts:         attempt,
				FinalRadiusKm:    radius,
				SearchTime:       elapsed,
				Time:             time.Now(),
			}, r.TenantID)
			e.log.Infof("request %s assigned to driver %s after %d attempt(s)", r.ID, d.ID, attempt)

			return SubmitResult{
				Success:          true,
				RequestID:        r.ID,
				AssignedDriver:   &d,
				DistanceKm:       res.DistanceKm,
				EstimatedArrival: res.EstimatedArrival,
				Attempts:         attempt,
			}
		}

		radius = math.Min(radius+cfg.SearchRadiusIncrement, cfg.MaxSearchRadiusKm)
		radiusExpansions.Inc()
		e.emit(Event{Type: EventSearchExpanded, RequestID: r.ID, Timestamp: time.Now(), Data: map[string]any{
			"new_radius": radius,
		}})
		e.log.Debugf("request %s: no driver on attempt %d, radius now %.1f km", r.ID, attempt, radius)
	}

	e.mu.Lock()
	r.Status = model.RideNoDriver
	e.mu.Unlock()
	e.emit(Event{Type: EventSearchFailed, RequestID: r.ID, Timestamp: time.Now()})

	elapsed := time.Since(start)
	e.stats.recordOutcome(false, elapsed)
	searchFailures.WithLabelValues(strategyLabel).Inc()
	searchLatency.WithLabelValues(strategyLabel).Observe(elapsed.Seconds())
	e.recordAssignment(ctx, metrics.AssignmentRecord{
		RequestID:     r.ID,
		Strategy:      strategyLabel,
		Success:       false,
		FailureReason: failNoDrivers,
		Attempts:      attempt,
		FinalRadiusKm: radius,
		SearchTime:    elapsed,
		Time:          time.Now(),
	}, r.TenantID)
	e.log.Warnf("request %s: search exhausted after %d attempts", r.ID, attempt)

	return SubmitResult{Success: false, RequestID: r.ID, Attempts: attempt, Error: failNoDrivers}
}

// finishCancelled settles stats and records for a request cancelled while
// its search was still in flight.
func (e *Engine) finishCancelled(r *model.RideRequest, strategyLabel string, attempt int, radius float64, start time.Time) SubmitResult {
	elapsed := time.Since(start)
	e.stats.recordOutcome(false, elapsed)
	searchFailures.WithLabelValues(strategyLabel).Inc()
	searchLatency.WithLabelValues(strategyLabel).Observe(elapsed.Seconds())
	e.recordAssignment(context.Background(), metrics.AssignmentRecord{
		RequestID:     r.ID,
		Strategy:      strategyLabel,
		Success:       false,
		FailureReason: failCancelled,
		Attempts:      attempt,
		FinalRadiusKm: radius,
		SearchTime:    elapsed,
		Time:          time.Now(),
	}, r.TenantID)
	return SubmitResult{Success: false, RequestID: r.ID, Attempts: attempt, Error: failCancelled}
}

// AcceptRide records a driver accepting the ride currently assigned to it.
// Returns false on unknown ids or when the ride is assigned to someone else.
func (e *Engine) AcceptRide(ctx context.Context, driverID, requestID string) bool {
	e.mu.Lock()
	r, ok := e.pending[requestID]
	if !ok || r.AssignedDriverID != driverID {
		e.mu.Unlock()
		return false
	}
	d, ok := e.fleet.Get(driverID)
	if !ok {
		e.mu.Unlock()
		return false
	}
	r.Status = model.RideDriverAccepted
	customerID := r.CustomerID
	e.mu.Unlock()

	e.fleet.UpdateStatus(driverID, model.StatusGoingPickup)
	e.emit(Event{Type: EventDriverResponded, RequestID: requestID, DriverID: driverID, Timestamp: time.Now(), Data: map[string]any{
		"response": "accepted",
	}})

	if e.notifier != nil {
		if _, err := e.notifier.NotifyDriverEnRoute(ctx, customerID, d, enRouteETAMinutes); err != nil {
			e.log.Errorf("en-route notification for request %s failed: %v", requestID, err)
		}
	}
	return true
}

// DeclineRide records a driver turning down its assigned ride. The driver
// returns to the available pool; with AutoReassignOnDecline set, a new
// search excluding the driver starts in the background.
func (e *Engine) DeclineRide(ctx context.Context, driverID, requestID string) bool {
	e.mu.Lock()
	r, ok := e.pending[requestID]
	if !ok || r.AssignedDriverID != driverID {
		e.mu.Unlock()
		return false
	}
	r.Status = model.RideDriverDeclined
	r.AssignedDriverID = ""
	e.mu.Unlock()

	e.fleet.UpdateStatus(driverID, model.StatusAvailable)
	e.emit(Event{Type: EventDriverResponded, RequestID: requestID, DriverID: driverID, Timestamp: time.Now(), Data: map[string]any{
		"response": "declined",
	}})

	cfg := e.Config()
	if cfg.AutoReassignOnDecline {
		e.mu.Lock()
		r.Status = model.RideSearching
		e.mu.Unlock()
		go func() {
			e.emit(Event{Type: EventSearchStarted, RequestID: requestID, Timestamp: time.Now()})
			e.search(context.Background(), cfg, r, driverID)
		}()
	}
	return true
}

// CancelRide terminates the request from any state. An assigned driver is
// released and notified; the customer is notified unless the cancellation
// came from them. Preempts a pending auto-accept wait.
func (e *Engine) CancelRide(ctx context.Context, requestID string, by model.CancelledBy, reason string) bool {
	e.mu.Lock()
	r, ok := e.pending[requestID]
	if !ok {
		e.mu.Unlock()
		return false
	}
	oldStatus := r.Status
	r.Status = model.RideCancelled
	assignedID := r.AssignedDriverID
	customerID := r.CustomerID
	if ch, waiting := e.autoAccept[requestID]; waiting {
		close(ch)
		delete(e.autoAccept, requestID)
	}
	delete(e.pending, requestID)
	e.mu.Unlock()

	if assignedID != "" {
		e.fleet.UpdateStatus(assignedID, model.StatusAvailable)
		if e.notifier != nil {
			if _, err := e.notifier.NotifyRideCancelled(ctx, assignedID, model.RecipientDriver, reason); err != nil {
				e.log.Errorf("driver cancellation notification for request %s failed: %v", requestID, err)
			}
		}
	}
	if by != model.CancelledByCustomer && e.notifier != nil {
		if _, err := e.notifier.NotifyRideCancelled(ctx, customerID, model.RecipientCustomer, reason); err != nil {
			e.log.Errorf("customer cancellation notification for request %s failed: %v", requestID, err)
		}
	}

	if rec, ok := e.sink.(metrics.RideStatusRecorder); ok {
		_ = rec.RecordRideStatus(metrics.RideStatusEvent{
			RequestID: requestID,
			DriverID:  assignedID,
			OldStatus: oldStatus,
			NewStatus: model.RideCancelled,
			Time:      time.Now(),
		})
	}
	e.log.Infof("request %s cancelled by %s", requestID, by)
	return true
}

// UpdateRideStatus mutates the lifecycle status directly. Completing a ride
// releases the assigned driver and drops the request from the pending set.
func (e *Engine) UpdateRideStatus(requestID string, status model.RideStatus) bool {
	e.mu.Lock()
	r, ok := e.pending[requestID]
	if !ok {
		e.mu.Unlock()
		return false
	}
	oldStatus := r.Status
	r.Status = status
	assignedID := r.AssignedDriverID
	done := status == model.RideCompleted && assignedID != ""
	if done {
		delete(e.pending, requestID)
	}
	e.mu.Unlock()

	if done {
		e.fleet.UpdateStatus(assignedID, model.StatusAvailable)
	}
	if rec, ok := e.sink.(metrics.RideStatusRecorder); ok {
		_ = rec.RecordRideStatus(metrics.RideStatusEvent{
			RequestID: requestID,
			DriverID:  assignedID,
			OldStatus: oldStatus,
			NewStatus: status,
			Time:      time.Now(),
		})
	}
	return true
}

// GetStats returns a point-in-time snapshot of aggregate outcomes.
func (e *Engine) GetStats() Stats { return e.stats.snapshot() }

// PendingRequests returns copies of every request the engine still owns.
func (e *Engine) PendingRequests() []model.RideRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.RideRequest, 0, len(e.pending))
	for _, r := range e.pending {
		out = append(out, *r)
	}
	return out
}

// GetRequest returns a copy of one pending request.
func (e *Engine) GetRequest(requestID string) (model.RideRequest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.pending[requestID]
	if !ok {
		return model.RideRequest{}, false
	}
	return *r, true
}

// notifyDriver requests a push notification to the selected driver when the
// push channel is enabled. Failures never abort the assignment.
func (e *Engine) notifyDriver(ctx context.Context, cfg Config, d model.Driver, r model.RideRequest) {
	if !cfg.EnablePush || e.notifier == nil {
		return
	}
	if _, err := e.notifier.NotifyNewRide(ctx, d, r); err != nil {
		e.log.Errorf("new-ride notification to driver %s failed: %v", d.ID, err)
	}
}

// waitAutoAccept blocks for the auto-accept delay. Returns false when the
// wait is preempted by a cancellation or the context expiring.
func (e *Engine) waitAutoAccept(ctx context.Context, requestID string, delay time.Duration) bool {
	cancelCh := make(chan struct{})
	e.mu.Lock()
	e.autoAccept[requestID] = cancelCh
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.autoAccept, requestID)
		e.mu.Unlock()
	}()

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-cancelCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// emit delivers the event to synchronous subscribers and the fan-out bus.
func (e *Engine) emit(ev Event) {
	e.subs.emit(ev)
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// recordAssignment hands the terminal outcome to the metrics sink and the
// audit store.
func (e *Engine) recordAssignment(ctx context.Context, rec metrics.AssignmentRecord, tenantID string) {
	if err := e.sink.RecordAssignment([]metrics.AssignmentRecord{rec}); err != nil {
		e.log.Errorf("metrics sink rejected assignment record for %s: %v", rec.RequestID, err)
	}
	if err := e.audit.Append(ctx, audit.Record{
		Timestamp:        rec.Time,
		RequestID:        rec.RequestID,
		TenantID:         tenantID,
		DriverID:         rec.DriverID,
		Strategy:         rec.Strategy,
		Success:          rec.Success,
		Reason:           rec.FailureReason,
		Attempts:         rec.Attempts,
		FinalRadiusKm:    rec.FinalRadiusKm,
		DistanceKm:       rec.DistanceKm,
		EstimatedArrival: rec.EstimatedArrival,
		SearchTimeMs:     rec.SearchTime.Milliseconds(),
	}); err != nil {
		e.log.Errorf("audit append for %s failed: %v", rec.RequestID, err)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
