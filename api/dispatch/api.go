// Package dispatch exposes the dispatch engine over HTTP.
package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	coredispatch "github.com/veeo/driver-dispatch/core/dispatch"
	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
	"github.com/veeo/driver-dispatch/core/notification"
	"github.com/veeo/driver-dispatch/core/scheduler"
)

// API wires the dispatch engine and notification service into HTTP
// handlers. Requests must include "Bearer <token>" when token is non-empty.
type API struct {
	engine    *coredispatch.Engine
	notify    *notification.Service
	scheduler *scheduler.Scheduler
	token     string
	log       logger.Logger
}

func NewAPI(engine *coredispatch.Engine, notify *notification.Service, token string, log logger.Logger) *API {
	return &API{engine: engine, notify: notify, token: token, log: log}
}

// SetScheduler routes rides with a future pickup to the scheduler instead of
// dispatching them immediately.
func (a *API) SetScheduler(s *scheduler.Scheduler) { a.scheduler = s }

// Register installs the dispatch routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/dispatch/rides", a.auth(a.submitRide))
	mux.HandleFunc("GET /api/dispatch/rides", a.auth(a.listRides))
	mux.HandleFunc("GET /api/dispatch/rides/{id}", a.auth(a.getRide))
	mux.HandleFunc("POST /api/dispatch/rides/{id}/accept", a.auth(a.acceptRide))
	mux.HandleFunc("POST /api/dispatch/rides/{id}/decline", a.auth(a.declineRide))
	mux.HandleFunc("POST /api/dispatch/rides/{id}/cancel", a.auth(a.cancelRide))
	mux.HandleFunc("POST /api/dispatch/rides/{id}/status", a.auth(a.updateStatus))
	mux.HandleFunc("GET /api/dispatch/scheduled", a.auth(a.listScheduled))
	mux.HandleFunc("POST /api/dispatch/scheduled/{id}/cancel", a.auth(a.cancelScheduled))
	mux.HandleFunc("GET /api/dispatch/stats", a.auth(a.stats))
}

func (a *API) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.token != "" {
			if r.Header.Get("Authorization") != "Bearer "+a.token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) submitRide(w http.ResponseWriter, r *http.Request) {
	var req model.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if a.scheduler != nil && req.ScheduledFor != nil && req.ScheduledFor.After(time.Now()) {
		if err := a.scheduler.Schedule(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"scheduled": true, "request_id": req.ID})
		return
	}
	res, err := a.engine.SubmitRideRequest(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

func (a *API) listScheduled(w http.ResponseWriter, _ *http.Request) {
	if a.scheduler == nil {
		writeJSON(w, http.StatusOK, []model.RideRequest{})
		return
	}
	writeJSON(w, http.StatusOK, a.scheduler.Pending())
}

func (a *API) cancelScheduled(w http.ResponseWriter, r *http.Request) {
	if a.scheduler == nil || !a.scheduler.Cancel(r.PathValue("id")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (a *API) listRides(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.PendingRequests())
}

func (a *API) getRide(w http.ResponseWriter, r *http.Request) {
	req, ok := a.engine.GetRequest(r.PathValue("id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type driverResponse struct {
	DriverID string `json:"driver_id"`
}

func (a *API) acceptRide(w http.ResponseWriter, r *http.Request) {
	var body driverResponse
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !a.engine.AcceptRide(r.Context(), body.DriverID, r.PathValue("id")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (a *API) declineRide(w http.ResponseWriter, r *http.Request) {
	var body driverResponse
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !a.engine.DeclineRide(r.Context(), body.DriverID, r.PathValue("id")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"declined": true})
}

type cancelBody struct {
	CancelledBy model.CancelledBy `json:"cancelled_by"`
	Reason      string            `json:"reason"`
}

func (a *API) cancelRide(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.CancelledBy == "" {
		body.CancelledBy = model.CancelledBySystem
	}
	if !a.engine.CancelRide(r.Context(), r.PathValue("id"), body.CancelledBy, body.Reason) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

type statusBody struct {
	Status model.RideStatus `json:"status"`
}

func (a *API) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}
	if !a.engine.UpdateRideStatus(r.PathValue("id"), body.Status) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

type statsResponse struct {
	Dispatch      coredispatch.Stats `json:"dispatch"`
	Fleet         any                `json:"fleet"`
	Notifications any                `json:"notifications,omitempty"`
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Dispatch: a.engine.GetStats(),
		Fleet:    a.engine.Fleet().Stats(),
	}
	if a.notify != nil {
		resp.Notifications = a.notify.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
