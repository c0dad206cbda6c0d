// Package kpi persists daily driver KPIs in SQLite.
package kpi

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	core "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
)

// SQLiteStore persists KPI records in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ core.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS driver_kpi (
        driver_id TEXT,
        day INTEGER,
        delivered INTEGER NOT NULL DEFAULT 0,
        returned INTEGER NOT NULL DEFAULT 0,
        delivered_kg REAL NOT NULL DEFAULT 0,
        escalated INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY(driver_id, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add merges the record into the driver's day.
func (s *SQLiteStore) Add(r core.Record) error {
	d := core.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO driver_kpi (driver_id, day, delivered, returned, delivered_kg, escalated)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(driver_id, day) DO UPDATE SET
            delivered = delivered + excluded.delivered,
            returned = returned + excluded.returned,
            delivered_kg = delivered_kg + excluded.delivered_kg,
            escalated = escalated + excluded.escalated`,
		r.DriverID, d.Unix(), r.Delivered, r.Returned, r.DeliveredKg, r.EscalatedCount)
	return err
}

type kpiRow struct {
	DriverID    string  `db:"driver_id"`
	Day         int64   `db:"day"`
	Delivered   int     `db:"delivered"`
	Returned    int     `db:"returned"`
	DeliveredKg float64 `db:"delivered_kg"`
	Escalated   int     `db:"escalated"`
}

// Query returns records in the range [start,end].
func (s *SQLiteStore) Query(driverID string, start, end time.Time) ([]core.Record, error) {
	var rows []kpiRow
	err := s.db.Select(&rows, `SELECT driver_id, day, delivered, returned, delivered_kg, escalated
        FROM driver_kpi WHERE driver_id = ? AND day >= ? AND day <= ? ORDER BY day`,
		driverID, core.Day(start).Unix(), core.Day(end).Unix())
	if err != nil {
		return nil, err
	}
	res := make([]core.Record, 0, len(rows))
	for _, r := range rows {
		res = append(res, core.Record{
			DriverID:       r.DriverID,
			Date:           time.Unix(r.Day, 0).UTC(),
			Delivered:      r.Delivered,
			Returned:       r.Returned,
			DeliveredKg:    r.DeliveredKg,
			EscalatedCount: r.Escalated,
		})
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
