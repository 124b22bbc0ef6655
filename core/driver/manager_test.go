package driver

import (
	"testing"

	"github.com/veeo/driver-dispatch/core/model"
)

func newDriver(id string, status model.DriverStatus) model.Driver {
	return model.Driver{ID: id, Status: status, VehicleType: "standard", Rating: 4.5, IsActive: true}
}

func TestUpdateStatusStampsAndNotifies(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))

	var gotOld model.DriverStatus
	var gotNew model.DriverStatus
	m.SubscribeStatusChange(func(d model.Driver, old model.DriverStatus) {
		gotOld = old
		gotNew = d.Status
	})

	if !m.UpdateStatus("d1", model.StatusBusy) {
		t.Fatal("expected true for known driver")
	}
	if gotOld != model.StatusAvailable || gotNew != model.StatusBusy {
		t.Fatalf("observer saw %s -> %s", gotOld, gotNew)
	}
	d, _ := m.Get("d1")
	if d.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}
	if m.UpdateStatus("missing", model.StatusBusy) {
		t.Fatal("expected false for unknown driver")
	}
}

func TestObserverPanicIsolated(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))
	m.SubscribeStatusChange(func(model.Driver, model.DriverStatus) { panic("boom") })
	called := false
	m.SubscribeStatusChange(func(model.Driver, model.DriverStatus) { called = true })

	if !m.UpdateStatus("d1", model.StatusBusy) {
		t.Fatal("update failed")
	}
	if !called {
		t.Fatal("second observer not invoked after first panicked")
	}
	d, _ := m.Get("d1")
	if d.Status != model.StatusBusy {
		t.Fatal("mutation lost after observer panic")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))
	calls := 0
	unsub := m.SubscribeStatusChange(func(model.Driver, model.DriverStatus) { calls++ })
	m.UpdateStatus("d1", model.StatusBusy)
	unsub()
	m.UpdateStatus("d1", model.StatusAvailable)
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestSetActiveForcesOffline(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))
	if !m.SetActive("d1", false) {
		t.Fatal("expected true")
	}
	d, _ := m.Get("d1")
	if d.IsActive || d.Status != model.StatusOffline {
		t.Fatalf("deactivation should force offline, got active=%v status=%s", d.IsActive, d.Status)
	}
}

func TestListByVehicleTypeActiveOnly(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))
	van := newDriver("d2", model.StatusAvailable)
	van.VehicleType = "van"
	m.Upsert(van)
	inactive := newDriver("d3", model.StatusAvailable)
	inactive.IsActive = false
	m.Upsert(inactive)

	got := m.ListByVehicleType("standard")
	if len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("expected only d1, got %v", got)
	}
}

func TestMutationsOnUnknownID(t *testing.T) {
	m := NewManager()
	if m.UpdateLocation("x", 1, 2) || m.UpdatePushToken("x", "t", "") || m.SetActive("x", true) || m.Remove("x") {
		t.Fatal("mutations on unknown id must return false")
	}
}

func TestStats(t *testing.T) {
	m := NewManager()
	m.LoadMany([]model.Driver{
		newDriver("d1", model.StatusAvailable),
		newDriver("d2", model.StatusBusy),
		newDriver("d3", model.StatusOffline),
	})
	st := m.Stats()
	if st.Total != 3 || st.Available != 1 || st.Busy != 1 || st.Offline != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.ByVehicleType["standard"] != 3 {
		t.Fatalf("vehicle type counts: %+v", st.ByVehicleType)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewManager()
	m.Upsert(newDriver("d1", model.StatusAvailable))
	d, _ := m.Get("d1")
	d.Status = model.StatusOffline
	again, _ := m.Get("d1")
	if again.Status != model.StatusAvailable {
		t.Fatal("registry record mutated through a returned copy")
	}
}
