// Package scheduler holds rides booked for a future pickup and hands them to
// the dispatch engine once their search window opens.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
)

// Submitter starts a driver search for one ride request.
type Submitter interface {
	SubmitRideRequest(ctx context.Context, req model.RideRequest) (dispatch.SubmitResult, error)
}

// Config defines the planning parameters.
type Config struct {
	// LeadTimeSeconds is how long before the scheduled pickup the driver
	// search starts.
	LeadTimeSeconds int `json:"lead_time_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LeadTimeSeconds == 0 {
		c.LeadTimeSeconds = 300
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LeadTimeSeconds < 0 {
		return errors.New("lead_time_seconds must not be negative")
	}
	return nil
}

func (c Config) leadTime() time.Duration {
	return time.Duration(c.LeadTimeSeconds) * time.Second
}

// Scheduler owns the queue of future rides. Run drains it as rides come due.
type Scheduler struct {
	cfg    Config
	engine Submitter
	log    logger.Logger

	mu    sync.Mutex
	queue map[string]model.RideRequest
	wake  chan struct{}
}

// New creates a Scheduler submitting due rides to the engine.
func New(cfg Config, engine Submitter, log logger.Logger) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Scheduler{
		cfg:    cfg,
		engine: engine,
		log:    log,
		queue:  make(map[string]model.RideRequest),
		wake:   make(chan struct{}, 1),
	}, nil
}

// Schedule enqueues a ride for a future pickup. The request must carry a
// ScheduledFor time later than the search lead time from now.
func (s *Scheduler) Schedule(req model.RideRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.ScheduledFor == nil {
		return errors.New("scheduled_for is required")
	}
	if !s.dueAt(req).After(time.Now()) {
		return fmt.Errorf("ride %s is already due for dispatch", req.ID)
	}
	req.Status = model.RidePending
	s.mu.Lock()
	s.queue[req.ID] = req
	s.mu.Unlock()
	s.signal()
	return nil
}

// Cancel removes a not-yet-dispatched ride from the queue.
func (s *Scheduler) Cancel(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[requestID]; !ok {
		return false
	}
	delete(s.queue, requestID)
	return true
}

// Pending returns the queued rides ordered by scheduled pickup time.
func (s *Scheduler) Pending() []model.RideRequest {
	s.mu.Lock()
	out := make([]model.RideRequest, 0, len(s.queue))
	for _, r := range s.queue {
		out = append(out, r)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(*out[j].ScheduledFor)
	})
	return out
}

// Run blocks until the context is cancelled, dispatching rides as their
// search window opens.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(s.untilNextDue())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dueAt(req model.RideRequest) time.Time {
	return req.ScheduledFor.Add(-s.cfg.leadTime())
}

// untilNextDue returns the wait until the earliest queued ride comes due. An
// empty queue parks the loop until Schedule signals it.
func (s *Scheduler) untilNextDue() time.Duration {
	const idle = time.Hour
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := idle
	now := time.Now()
	for _, r := range s.queue {
		if d := s.dueAt(r).Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	var due []model.RideRequest
	for id, r := range s.queue {
		if !s.dueAt(r).After(now) {
			due = append(due, r)
			delete(s.queue, id)
		}
	}
	s.mu.Unlock()

	for _, r := range due {
		req := r
		go func() {
			res, err := s.engine.SubmitRideRequest(ctx, req)
			if err != nil {
				s.log.Errorf("scheduled ride %s rejected: %v", req.ID, err)
				return
			}
			if !res.Success {
				s.log.Warnf("scheduled ride %s found no driver: %s", req.ID, res.Error)
				return
			}
			s.log.Infof("scheduled ride %s assigned to %s", req.ID, res.AssignedDriver.ID)
		}()
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
