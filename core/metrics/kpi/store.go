// Package kpi aggregates per-driver delivery outcomes into daily records.
package kpi

import "time"

// Store persists daily driver KPI records. Add merges into the existing
// record for the same driver and UTC day.
type Store interface {
	Add(Record) error
	Query(driverID string, start, end time.Time) ([]Record, error)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
