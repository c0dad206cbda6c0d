package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS dispatch_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER NOT NULL,
        pass_id TEXT NOT NULL,
        method TEXT NOT NULL,
        record TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS dispatch_log_items (
        log_id INTEGER NOT NULL REFERENCES dispatch_logs(id),
        driver_id TEXT NOT NULL,
        tracking_id TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS dispatch_log_items_driver ON dispatch_log_items (driver_id)`,
	`CREATE INDEX IF NOT EXISTS dispatch_log_items_tracking ON dispatch_log_items (tracking_id)`,
}

// SQLiteStore keeps the full record as JSON next to an item table of
// (driver, tracking id) pairs so every filter runs in SQL. Unassigned
// shipments are stored with an empty driver id.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec LogRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO dispatch_logs (ts, pass_id, method, record) VALUES (?, ?, ?, ?)`,
		rec.Timestamp.UnixNano(), rec.PassID, rec.Method, string(doc))
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	insert := func(driver, tracking string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO dispatch_log_items (log_id, driver_id, tracking_id) VALUES (?, ?, ?)`,
			id, driver, tracking)
		return err
	}
	for _, d := range rec.Drivers() {
		for _, tid := range rec.Assignments[d] {
			if err := insert(d, tid); err != nil {
				return fmt.Errorf("insert audit item: %w", err)
			}
		}
	}
	for _, tid := range rec.Unassigned {
		if err := insert("", tid); err != nil {
			return fmt.Errorf("insert audit item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	var (
		where []string
		args  []any
	)
	if !q.Start.IsZero() {
		where = append(where, `l.ts >= ?`)
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		where = append(where, `l.ts <= ?`)
		args = append(args, q.End.UnixNano())
	}
	if q.Method != "" {
		where = append(where, `l.method = ?`)
		args = append(args, q.Method)
	}
	if q.DriverID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM dispatch_log_items i WHERE i.log_id = l.id AND i.driver_id = ?)`)
		args = append(args, q.DriverID)
	}
	if q.TrackingID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM dispatch_log_items i WHERE i.log_id = l.id AND i.tracking_id = ?)`)
		args = append(args, q.TrackingID)
	}
	query := `SELECT l.record FROM dispatch_logs l`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	// newest first so LIMIT keeps the most recent, reversed below
	query += ` ORDER BY l.ts DESC, l.id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var docs []string
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	slices.Reverse(docs)
	res := make([]LogRecord, 0, len(docs))
	for _, doc := range docs {
		var rec LogRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		res = append(res, rec)
	}
	return res, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
