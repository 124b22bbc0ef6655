package metrics

import coremetrics "github.com/veeo/driver-dispatch/core/metrics"

// MultiSink fans assignment records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.AssignmentSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.AssignmentSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignment forwards the records to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordNotification forwards delivery attempts.
func (m *MultiSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.NotificationRecorder); ok {
			if err := rec.RecordNotification(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSearch forwards search attempts.
func (m *MultiSink) RecordSearch(ev coremetrics.SearchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SearchRecorder); ok {
			if err := rec.RecordSearch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDriverStatus forwards driver status transitions.
func (m *MultiSink) RecordDriverStatus(ev coremetrics.DriverStatusEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.DriverStatusRecorder); ok {
			if err := rec.RecordDriverStatus(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRideStatus forwards ride lifecycle transitions.
func (m *MultiSink) RecordRideStatus(ev coremetrics.RideStatusEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RideStatusRecorder); ok {
			if err := rec.RecordRideStatus(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordResponseLatency forwards latency metrics when supported by the sink.
func (m *MultiSink) RecordResponseLatency(lat []coremetrics.ResponseLatency) error {
	for _, s := range m.Sinks {
		if lr, ok := s.(coremetrics.LatencyRecorder); ok {
			if err := lr.RecordResponseLatency(lat); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet size metrics when supported by the sink.
func (m *MultiSink) RecordFleetSize(size int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(coremetrics.FleetSizeRecorder); ok {
			if err := fr.RecordFleetSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases resources held by closable child sinks.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
