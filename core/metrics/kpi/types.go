package kpi

import "time"

// Record aggregates delivery outcomes for a driver and day.
type Record struct {
	DriverID       string
	Date           time.Time
	Delivered      int
	Returned       int
	DeliveredKg    float64
	EscalatedCount int
}

// Merge adds the counters of o to r. Identity fields are left untouched.
func (r *Record) Merge(o Record) {
	r.Delivered += o.Delivered
	r.Returned += o.Returned
	r.DeliveredKg += o.DeliveredKg
	r.EscalatedCount += o.EscalatedCount
}

// SuccessRate returns delivered over finished shipments, or 0 when none finished.
func (r Record) SuccessRate() float64 {
	finished := r.Delivered + r.Returned
	if finished == 0 {
		return 0
	}
	return float64(r.Delivered) / float64(finished)
}

// AverageLoad is the mean delivered weight per delivered shipment.
func (r Record) AverageLoad() float64 {
	if r.Delivered == 0 {
		return 0
	}
	return r.DeliveredKg / float64(r.Delivered)
}

// Total folds daily records into one. Date is the first day covered.
func Total(recs []Record) Record {
	var out Record
	for i, r := range recs {
		if i == 0 || r.Date.Before(out.Date) {
			out.Date = r.Date
		}
		out.DriverID = r.DriverID
		out.Merge(r)
	}
	return out
}
