// Package driver holds the in-memory driver registry. The Manager is the
// single owner of Driver records for a tenant shard: every mutation goes
// through a controlled setter and every read returns a copy.
package driver

import (
	"sync"
	"time"

	"github.com/veeo/driver-dispatch/core/model"
)

// StatusObserver is invoked synchronously after a driver status change with
// the updated driver and the previous status.
type StatusObserver func(d model.Driver, oldStatus model.DriverStatus)

// Manager is a mutex-guarded registry of drivers keyed by id.
type Manager struct {
	mu        sync.RWMutex
	drivers   map[string]*model.Driver
	observers map[int]StatusObserver
	nextObsID int
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		drivers:   make(map[string]*model.Driver),
		observers: make(map[int]StatusObserver),
	}
}

// Upsert adds or replaces a driver record.
func (m *Manager) Upsert(d model.Driver) {
	m.mu.Lock()
	cp := d
	m.drivers[d.ID] = &cp
	m.mu.Unlock()
}

// LoadMany bulk-upserts drivers from an external directory source.
func (m *Manager) LoadMany(drivers []model.Driver) {
	m.mu.Lock()
	for _, d := range drivers {
		cp := d
		m.drivers[d.ID] = &cp
	}
	m.mu.Unlock()
}

// Get returns the driver and whether it exists.
func (m *Manager) Get(id string) (model.Driver, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return model.Driver{}, false
	}
	return *d, true
}

// List returns all registered drivers.
func (m *Manager) List() []model.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, *d)
	}
	return out
}

// ListByStatus returns drivers currently in the given status.
func (m *Manager) ListByStatus(status model.DriverStatus) []model.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Driver
	for _, d := range m.drivers {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out
}

// ListAvailable returns drivers in the available status.
func (m *Manager) ListAvailable() []model.Driver {
	return m.ListByStatus(model.StatusAvailable)
}

// ListByVehicleType returns active drivers with the given vehicle type.
func (m *Manager) ListByVehicleType(vehicleType string) []model.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Driver
	for _, d := range m.drivers {
		if d.IsActive && d.VehicleType == vehicleType {
			out = append(out, *d)
		}
	}
	return out
}

// UpdateStatus transitions a driver to a new status and stamps UpdatedAt.
// Observers are notified synchronously, in registration order, after the
// mutation. Returns false for an unknown id.
func (m *Manager) UpdateStatus(id string, status model.DriverStatus) bool {
	m.mu.Lock()
	d, ok := m.drivers[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	old := d.Status
	d.Status = status
	d.UpdatedAt = time.Now()
	cp := *d
	obs := m.orderedObservers()
	m.mu.Unlock()

	for _, fn := range obs {
		notifyObserver(fn, cp, old)
	}
	return true
}

// notifyObserver isolates observer panics from the mutating caller.
func notifyObserver(fn StatusObserver, d model.Driver, old model.DriverStatus) {
	defer func() { _ = recover() }()
	fn(d, old)
}

// UpdateLocation records a new position fix for the driver.
func (m *Manager) UpdateLocation(id string, lat, lng float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false
	}
	now := time.Now()
	d.Location = &model.Location{Lat: lat, Lng: lng, UpdatedAt: now}
	d.UpdatedAt = now
	return true
}

// UpdatePushToken sets the push delivery tokens; empty arguments leave the
// corresponding token untouched.
func (m *Manager) UpdatePushToken(id, fcmToken, apnsToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false
	}
	if fcmToken != "" {
		d.FCMToken = fcmToken
	}
	if apnsToken != "" {
		d.APNSToken = apnsToken
	}
	d.UpdatedAt = time.Now()
	return true
}

// SetActive toggles the active flag. Deactivating a driver forces its status
// to offline so it can no longer be selected.
func (m *Manager) SetActive(id string, active bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return false
	}
	d.IsActive = active
	if !active {
		d.Status = model.StatusOffline
	}
	d.UpdatedAt = time.Now()
	return true
}

// Remove deletes the driver from the registry.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[id]; !ok {
		return false
	}
	delete(m.drivers, id)
	return true
}

// SubscribeStatusChange registers an observer and returns its unsubscribe
// function.
func (m *Manager) SubscribeStatusChange(fn StatusObserver) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// orderedObservers returns observers in registration order. Callers must hold
// at least the read lock.
func (m *Manager) orderedObservers() []StatusObserver {
	out := make([]StatusObserver, 0, len(m.observers))
	for id := 0; id < m.nextObsID; id++ {
		if fn, ok := m.observers[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Clear drops all drivers and observers. Intended for tests and tenant
// teardown.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.drivers = make(map[string]*model.Driver)
	m.observers = make(map[int]StatusObserver)
	m.nextObsID = 0
	m.mu.Unlock()
}

// Stats summarizes the registry.
type Stats struct {
	Total         int            `json:"total"`
	Available     int            `json:"available"`
	Busy          int            `json:"busy"`
	Offline       int            `json:"offline"`
	OnBreak       int            `json:"on_break"`
	GoingPickup   int            `json:"going_pickup"`
	ByVehicleType map[string]int `json:"by_vehicle_type"`
}

// Stats counts drivers by status and, among active drivers, by vehicle type.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{ByVehicleType: make(map[string]int)}
	for _, d := range m.drivers {
		st.Total++
		switch d.Status {
		case model.StatusAvailable:
			st.Available++
		case model.StatusBusy:
			st.Busy++
		case model.StatusOffline:
			st.Offline++
		case model.StatusOnBreak:
			st.OnBreak++
		case model.StatusGoingPickup:
			st.GoingPickup++
		}
		if d.IsActive {
			st.ByVehicleType[d.VehicleType]++
		}
	}
	return st
}
