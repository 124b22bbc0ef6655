package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/veeo/driver-dispatch/core/metrics"
)

type captureSink struct {
	coremetrics.NopSink
	assignments int
	statuses    int
	failWith    error
}

func (c *captureSink) RecordAssignment(recs []coremetrics.AssignmentRecord) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.assignments += len(recs)
	return nil
}

func (c *captureSink) RecordDriverStatus(coremetrics.DriverStatusEvent) error {
	c.statuses++
	return nil
}

// assignmentOnlySink implements only the base interface, no capabilities.
type assignmentOnlySink struct{}

func (assignmentOnlySink) RecordAssignment([]coremetrics.AssignmentRecord) error { return nil }

func TestMultiSinkFanout(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	m := NewMultiSink(a, b, assignmentOnlySink{})

	rec := coremetrics.AssignmentRecord{RequestID: "r1", Strategy: "nearest", Success: true, Time: time.Now()}
	require.NoError(t, m.RecordAssignment([]coremetrics.AssignmentRecord{rec}))
	assert.Equal(t, 1, a.assignments)
	assert.Equal(t, 1, b.assignments)

	require.NoError(t, m.RecordDriverStatus(coremetrics.DriverStatusEvent{DriverID: "d1"}))
	assert.Equal(t, 1, a.statuses)
	assert.Equal(t, 1, b.statuses)
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := &captureSink{failWith: boom}
	b := &captureSink{}
	m := NewMultiSink(a, b)

	err := m.RecordAssignment([]coremetrics.AssignmentRecord{{RequestID: "r1"}})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, b.assignments, "fanout stops at the first failing sink")
}

func TestMultiSinkSkipsUnsupportedCapabilities(t *testing.T) {
	m := NewMultiSink(assignmentOnlySink{})
	require.NoError(t, m.RecordSearch(coremetrics.SearchEvent{}))
	require.NoError(t, m.RecordNotification(coremetrics.NotificationEvent{}))
	require.NoError(t, m.RecordFleetSize(3))
	require.NoError(t, m.RecordResponseLatency(nil))
}
