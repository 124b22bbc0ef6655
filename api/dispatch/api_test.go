package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredispatch "github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/dispatch/audit"
	"github.com/veeo/driver-dispatch/core/driver"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/core/scheduler"
	"github.com/veeo/driver-dispatch/infra/notify"
)

func newTestAPI(t *testing.T) (*API, *driver.Manager) {
	t.Helper()
	fleet := driver.NewManager()
	fleet.Upsert(model.Driver{
		ID:          "d1",
		Status:      model.StatusAvailable,
		VehicleType: "standard",
		Rating:      4.5,
		IsActive:    true,
		FCMToken:    "tok",
		Location:    &model.Location{Lat: 48.583, Lng: 7.745, UpdatedAt: time.Now()},
	})
	svc := notification.NewService()
	svc.RegisterProvider(model.ChannelPush, notify.NewMockProvider())
	eng, err := coredispatch.NewEngine(coredispatch.Config{EnablePush: true}, fleet, svc, coredispatch.Options{})
	require.NoError(t, err)
	return NewAPI(eng, svc, "secret", nil), fleet
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestAPIRequiresToken(t *testing.T) {
	api, _ := newTestAPI(t)
	mux := http.NewServeMux()
	api.Register(mux)

	rr := doJSON(t, mux, http.MethodGet, "/api/dispatch/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/stats", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/stats", "secret", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPISubmitAndLifecycle(t *testing.T) {
	api, fleet := newTestAPI(t)
	mux := http.NewServeMux()
	api.Register(mux)

	ride := model.RideRequest{
		ID:          "r1",
		CustomerID:  "c1",
		VehicleType: "standard",
		Pickup:      model.Stop{Address: "a", Lat: 48.583, Lng: 7.745},
		Dropoff:     model.Stop{Address: "b", Lat: 48.6, Lng: 7.745},
	}
	rr := doJSON(t, mux, http.MethodPost, "/api/dispatch/rides", "secret", ride)
	require.Equal(t, http.StatusOK, rr.Code)

	var res coredispatch.SubmitResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.Success)
	assert.Equal(t, "d1", res.AssignedDriver.ID)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/rides/r1", "secret", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, mux, http.MethodPost, "/api/dispatch/rides/r1/accept", "secret", map[string]string{"driver_id": "d1"})
	require.Equal(t, http.StatusOK, rr.Code)
	d, _ := fleet.Get("d1")
	assert.Equal(t, model.StatusGoingPickup, d.Status)

	rr = doJSON(t, mux, http.MethodPost, "/api/dispatch/rides/r1/status", "secret", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rr.Code)
	d, _ = fleet.Get("d1")
	assert.Equal(t, model.StatusAvailable, d.Status)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/rides", "secret", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var pending []model.RideRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pending))
	assert.Empty(t, pending)
}

func TestAPISubmitNoDriver(t *testing.T) {
	api, fleet := newTestAPI(t)
	fleet.Clear()
	mux := http.NewServeMux()
	api.Register(mux)

	ride := model.RideRequest{ID: "r1", CustomerID: "c1", VehicleType: "standard"}
	rr := doJSON(t, mux, http.MethodPost, "/api/dispatch/rides", "secret", ride)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAPIUnknownRide(t *testing.T) {
	api, _ := newTestAPI(t)
	mux := http.NewServeMux()
	api.Register(mux)

	rr := doJSON(t, mux, http.MethodPost, "/api/dispatch/rides/nope/cancel", "secret", map[string]string{"cancelled_by": "customer"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/rides/nope", "secret", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIScheduledRide(t *testing.T) {
	api, _ := newTestAPI(t)
	sched, err := scheduler.New(scheduler.Config{LeadTimeSeconds: 60}, nil, nil)
	require.NoError(t, err)
	api.SetScheduler(sched)
	mux := http.NewServeMux()
	api.Register(mux)

	at := time.Now().Add(time.Hour)
	ride := model.RideRequest{ID: "r-future", CustomerID: "c1", ScheduledFor: &at}
	rr := doJSON(t, mux, http.MethodPost, "/api/dispatch/rides", "secret", ride)
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = doJSON(t, mux, http.MethodGet, "/api/dispatch/scheduled", "secret", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var pending []model.RideRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "r-future", pending[0].ID)

	rr = doJSON(t, mux, http.MethodPost, "/api/dispatch/scheduled/r-future/cancel", "secret", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, mux, http.MethodPost, "/api/dispatch/scheduled/r-future/cancel", "secret", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuditHandler(t *testing.T) {
	store := audit.NopStore{}
	h := NewAuditHandler(store, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/dispatch/audit?failures_only=true", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuditHandlerQueriesStore(t *testing.T) {
	dir := t.TempDir()
	store, err := audit.NewJSONLStore(dir + "/audit.jsonl")
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), audit.Record{
		Timestamp: time.Now(),
		RequestID: "r1",
		Success:   false,
		Reason:    "No available drivers found",
	}))

	h := NewAuditHandler(store, "")
	req := httptest.NewRequest(http.MethodGet, "/api/dispatch/audit?request_id=r1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var records []audit.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].RequestID)
}
