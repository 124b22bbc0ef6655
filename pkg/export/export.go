// Package export renders dispatch audit records for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/veeo/driver-dispatch/core/dispatch/audit"
)

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, records []audit.Record) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the records to w in CSV format.
func WriteCSV(w io.Writer, records []audit.Record) error {
	cw := csv.NewWriter(w)
	header := []string{
		"timestamp", "request_id", "tenant_id", "driver_id", "strategy",
		"success", "reason", "attempts", "final_radius_km", "distance_km",
		"estimated_arrival", "search_time_ms",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			r.RequestID,
			r.TenantID,
			r.DriverID,
			r.Strategy,
			strconv.FormatBool(r.Success),
			r.Reason,
			strconv.Itoa(r.Attempts),
			strconv.FormatFloat(r.FinalRadiusKm, 'f', -1, 64),
			strconv.FormatFloat(r.DistanceKm, 'f', -1, 64),
			strconv.Itoa(r.EstimatedArrival),
			strconv.FormatInt(r.SearchTimeMs, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
