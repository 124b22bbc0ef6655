package dispatch

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/veeo/driver-dispatch/core/dispatch/audit"
)

// NewAuditHandler returns an HTTP handler exposing terminal dispatch
// outcomes via GET /api/dispatch/audit. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewAuditHandler(store audit.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := audit.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.RequestID = r.URL.Query().Get("request_id")
		q.DriverID = r.URL.Query().Get("driver_id")
		if s := r.URL.Query().Get("failures_only"); s != "" {
			if v, err := strconv.ParseBool(s); err == nil {
				q.FailuresOnly = v
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
