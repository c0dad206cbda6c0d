// Package sqlstore implements store.Store on SQL databases through sqlx.
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx) share one schema; every
// conditional increment is a single guarded UPDATE and multi-row changes run
// in a transaction.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a SQL backed store.Store.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	name := driver
	switch driver {
	case DriverSQLite:
	case DriverPostgres:
		name = "pgx"
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: dsn required")
	}
	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps :memory: databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS shipments (
        id TEXT PRIMARY KEY,
        tracking_id TEXT NOT NULL UNIQUE,
        sku TEXT NOT NULL,
        quantity INTEGER NOT NULL,
        direction TEXT NOT NULL,
        priority INTEGER NOT NULL,
        zone TEXT NOT NULL,
        warehouse_code TEXT NOT NULL,
        weight DOUBLE PRECISION NOT NULL,
        volume DOUBLE PRECISION NOT NULL,
        status TEXT NOT NULL,
        assigned_driver_id TEXT,
        accepted BOOLEAN NOT NULL DEFAULT FALSE,
        accepted_at BIGINT,
        batch_id TEXT,
        sla_tier TEXT NOT NULL,
        sla_deadline BIGINT NOT NULL,
        escalated BOOLEAN NOT NULL DEFAULT FALSE,
        window_start BIGINT,
        window_end BIGINT,
        reserved INTEGER NOT NULL DEFAULT 0,
        received_quantity INTEGER,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        status_history TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS shipments_sku_status ON shipments (sku, warehouse_code, status)`,
	`CREATE INDEX IF NOT EXISTS shipments_batch ON shipments (batch_id)`,
	`CREATE TABLE IF NOT EXISTS shipment_locations (
        shipment_id TEXT NOT NULL,
        seq INTEGER NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        lng DOUBLE PRECISION NOT NULL,
        accuracy DOUBLE PRECISION,
        recorded_at BIGINT NOT NULL,
        PRIMARY KEY (shipment_id, seq)
    )`,
	`CREATE TABLE IF NOT EXISTS drivers (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        zone TEXT NOT NULL,
        capacity DOUBLE PRECISION NOT NULL,
        current_load DOUBLE PRECISION NOT NULL,
        volume_capacity DOUBLE PRECISION NOT NULL,
        current_volume DOUBLE PRECISION NOT NULL,
        available BOOLEAN NOT NULL,
        cumulative_minutes INTEGER NOT NULL,
        continuous_minutes INTEGER NOT NULL,
        shift_start BIGINT,
        shift_end BIGINT
    )`,
	`CREATE TABLE IF NOT EXISTS inventory (
        sku TEXT NOT NULL,
        warehouse_code TEXT NOT NULL,
        on_hand INTEGER NOT NULL,
        reserved INTEGER NOT NULL,
        conflict BOOLEAN NOT NULL DEFAULT FALSE,
        updated_at BIGINT NOT NULL,
        PRIMARY KEY (sku, warehouse_code)
    )`,
	`CREATE TABLE IF NOT EXISTS dispatches (
        id TEXT PRIMARY KEY,
        shipment_id TEXT NOT NULL,
        tracking_id TEXT NOT NULL,
        driver_id TEXT NOT NULL,
        method TEXT NOT NULL,
        status TEXT NOT NULL,
        dispatched_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS dispatches_driver ON dispatches (driver_id)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Times are stored as UTC nanoseconds; 0 encodes the zero time.
func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
