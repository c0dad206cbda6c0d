// Package logging persists an audit trail of allocation passes and manual
// batch assignments.
package logging

import (
	"context"
	"slices"
	"time"
)

// LogRecord captures one allocation decision.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	PassID    string    `json:"pass_id"`
	// Method is model.MethodAutoAssign or model.MethodBatchAssign.
	Method string `json:"method"`
	// Assignments maps driver ids to the tracking ids they received.
	Assignments map[string][]string `json:"assignments"`
	Unassigned  []string            `json:"unassigned"`
	Result      *Result             `json:"result,omitempty"`
}

// Result mirrors the scoring of an auto-assignment pass.
type Result struct {
	Score                float64 `json:"score"`
	AssignmentRate       float64 `json:"assignment_rate"`
	ExpressCoverage      float64 `json:"express_coverage"`
	Utilization          float64 `json:"utilization"`
	RegulationCompliance float64 `json:"regulation_compliance"`
	TimeWindowCompliance float64 `json:"time_window_compliance"`
}

// LogQuery filters records. Zero fields match everything. A positive Limit
// keeps only the most recent matches.
type LogQuery struct {
	Start      time.Time
	End        time.Time
	DriverID   string
	TrackingID string
	Method     string
	Limit      int
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// Drivers returns the ids of drivers that received shipments, sorted.
func (r LogRecord) Drivers() []string {
	out := make([]string, 0, len(r.Assignments))
	for d := range r.Assignments {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Mentions reports whether the tracking id was assigned or left unassigned
// by this decision.
func (r LogRecord) Mentions(trackingID string) bool {
	for _, ids := range r.Assignments {
		if slices.Contains(ids, trackingID) {
			return true
		}
	}
	return slices.Contains(r.Unassigned, trackingID)
}

// Matches reports whether r satisfies every filter in q. Limit is ignored.
func (r LogRecord) Matches(q LogQuery) bool {
	switch {
	case !q.Start.IsZero() && r.Timestamp.Before(q.Start):
		return false
	case !q.End.IsZero() && r.Timestamp.After(q.End):
		return false
	case q.Method != "" && r.Method != q.Method:
		return false
	}
	if q.DriverID != "" {
		if _, ok := r.Assignments[q.DriverID]; !ok {
			return false
		}
	}
	return q.TrackingID == "" || r.Mentions(q.TrackingID)
}

// tail applies q.Limit to records held in chronological order.
func (q LogQuery) tail(recs []LogRecord) []LogRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}
