// Package export writes the allocation audit trail in JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "csv"}

// Write dispatches to WriteJSON or WriteCSV by format name.
func Write(w io.Writer, format string, recs []dispatchlog.LogRecord) error {
	switch format {
	case "", "json":
		return WriteJSON(w, recs)
	case "csv":
		return WriteCSV(w, recs)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the records as one JSON array.
func WriteJSON(w io.Writer, recs []dispatchlog.LogRecord) error {
	if recs == nil {
		recs = []dispatchlog.LogRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per shipment decision. Unassigned shipments have
// an empty driver_id. Drivers are sorted so the output is stable.
func WriteCSV(w io.Writer, recs []dispatchlog.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "pass_id", "method", "driver_id", "tracking_id", "score"}); err != nil {
		return err
	}
	for _, r := range recs {
		ts := r.Timestamp.UTC().Format(time.RFC3339)
		score := ""
		if r.Result != nil {
			score = strconv.FormatFloat(r.Result.Score, 'f', -1, 64)
		}
		drivers := make([]string, 0, len(r.Assignments))
		for d := range r.Assignments {
			drivers = append(drivers, d)
		}
		sort.Strings(drivers)
		for _, d := range drivers {
			for _, id := range r.Assignments[d] {
				if err := cw.Write([]string{ts, r.PassID, r.Method, d, id, score}); err != nil {
					return err
				}
			}
		}
		for _, id := range r.Unassigned {
			if err := cw.Write([]string{ts, r.PassID, r.Method, "", id, score}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
