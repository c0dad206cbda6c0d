package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

func (s *Store) CreateShipment(ctx context.Context, sh *model.Shipment) error {
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	row, err := toShipmentRow(sh)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT count(*) FROM shipments WHERE id = ? OR tracking_id = ?`), sh.ID, sh.TrackingID); err != nil {
		return fmt.Errorf("check shipment: %w", err)
	}
	if n > 0 {
		return apperr.New(apperr.ErrDuplicateShipment, "tracking id %s", sh.TrackingID)
	}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO shipments (`+shipmentColumns+`) VALUES (
        :id, :tracking_id, :sku, :quantity, :direction, :priority, :zone, :warehouse_code,
        :weight, :volume, :status, :assigned_driver_id, :accepted, :accepted_at, :batch_id, :sla_tier,
        :sla_deadline, :escalated, :window_start, :window_end, :reserved, :received_quantity,
        :created_at, :updated_at, :status_history)`, row)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	for i, loc := range sh.LocationHistory {
		if err := insertLocation(ctx, tx, sh.ID, i+1, loc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	return s.getShipment(ctx, s.db, `id = ?`, id)
}

func (s *Store) GetShipmentByTracking(ctx context.Context, trackingID string) (*model.Shipment, error) {
	return s.getShipment(ctx, s.db, `tracking_id = ?`, trackingID)
}

func (s *Store) getShipment(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (*model.Shipment, error) {
	var row shipmentRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(`SELECT `+shipmentColumns+` FROM shipments WHERE `+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "shipment %v", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	sh, err := row.toModel()
	if err != nil {
		return nil, err
	}
	locs, err := s.locations(ctx, q, []string{sh.ID})
	if err != nil {
		return nil, err
	}
	sh.LocationHistory = locs[sh.ID]
	return sh, nil
}

//gocyclo:ignore
func (s *Store) ListShipments(ctx context.Context, f store.ShipmentFilter) ([]*model.Shipment, error) {
	var conds []string
	var args []any
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}
	if f.Direction != "" {
		add(`direction = ?`, string(f.Direction))
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			names[i] = string(st)
		}
		add(`status IN (?)`, names)
	}
	if f.SKU != "" {
		add(`sku = ?`, f.SKU)
	}
	if f.Warehouse != "" {
		add(`warehouse_code = ?`, f.Warehouse)
	}
	if f.Zone != "" {
		add(`zone = ?`, f.Zone)
	}
	if f.BatchID != "" {
		add(`batch_id = ?`, f.BatchID)
	}
	if f.DriverID != "" {
		add(`assigned_driver_id = ?`, f.DriverID)
	}
	if f.Unassigned {
		add(`assigned_driver_id IS NULL`)
	}
	if f.NotEscalated {
		add(`escalated = ?`, false)
	}
	if !f.DeadlineBefore.IsZero() {
		add(`sla_deadline < ?`, nanos(f.DeadlineBefore))
	}
	query := `SELECT ` + shipmentColumns + ` FROM shipments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY priority, created_at, tracking_id`
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var rows []shipmentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]*model.Shipment, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		sh, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
		ids = append(ids, sh.ID)
	}
	locs, err := s.locations(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for _, sh := range out {
		sh.LocationHistory = locs[sh.ID]
	}
	return out, nil
}

func (s *Store) locations(ctx context.Context, q sqlx.QueryerContext, ids []string) (map[string][]model.LocationEntry, error) {
	query, args, err := sqlx.In(`SELECT shipment_id, seq, lat, lng, accuracy, recorded_at
        FROM shipment_locations WHERE shipment_id IN (?) ORDER BY shipment_id, seq`, ids)
	if err != nil {
		return nil, err
	}
	var rows []locationRow
	if err := sqlx.SelectContext(ctx, q, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	res := make(map[string][]model.LocationEntry, len(ids))
	for _, r := range rows {
		res[r.ShipmentID] = append(res[r.ShipmentID], r.toModel())
	}
	return res, nil
}

// TransitionShipment reads the shipment and writes the new status guarded by
// the status and update time it read, so a concurrent change fails the write.
func (s *Store) TransitionShipment(ctx context.Context, t store.Transition) (*model.Shipment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sh, err := s.getShipment(ctx, tx, `id = ?`, t.ShipmentID)
	if err != nil {
		return nil, err
	}
	if !containsStatus(t.From, sh.Status) {
		return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s is %s", sh.TrackingID, sh.Status)
	}
	prevStatus, prevUpdated := sh.Status, sh.UpdatedAt
	sh.AppendStatus(t.To, t.At, t.Actor, t.Note)
	if t.Reserved != nil {
		sh.Reserved = *t.Reserved
	}
	if t.Received != nil {
		v := *t.Received
		sh.ReceivedQuantity = &v
	}
	if t.ClearDriver {
		sh.AssignedDriverID = nil
	}
	history, err := json.Marshal(sh.StatusHistory)
	if err != nil {
		return nil, err
	}
	var received sql.NullInt64
	if sh.ReceivedQuantity != nil {
		received = sql.NullInt64{Int64: int64(*sh.ReceivedQuantity), Valid: true}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE shipments SET status = ?, status_history = ?, reserved = ?,
        received_quantity = ?, assigned_driver_id = ?, updated_at = ?
        WHERE id = ? AND status = ? AND updated_at = ?`),
		string(sh.Status), string(history), sh.Reserved, received, nullString(sh.AssignedDriverID),
		nanos(sh.UpdatedAt), sh.ID, string(prevStatus), nanos(prevUpdated))
	if err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s changed concurrently", sh.TrackingID)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *Store) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE shipments SET escalated = ?, updated_at = ? WHERE id = ? AND escalated = ?`),
		true, nanos(at), id, false)
	if err != nil {
		return false, fmt.Errorf("mark escalated: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if _, err := s.GetShipment(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) AppendLocation(ctx context.Context, id string, loc model.LocationEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	var seq int
	if err := tx.GetContext(ctx, &seq, tx.Rebind(`SELECT count(*) FROM shipments WHERE id = ?`), id); err != nil {
		return err
	}
	if seq == 0 {
		return apperr.New(apperr.ErrNotFound, "shipment %s", id)
	}
	if err := tx.GetContext(ctx, &seq, tx.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM shipment_locations WHERE shipment_id = ?`), id); err != nil {
		return err
	}
	if err := insertLocation(ctx, tx, id, seq+1, loc); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLocation(ctx context.Context, tx *sqlx.Tx, id string, seq int, loc model.LocationEntry) error {
	var acc sql.NullFloat64
	if loc.Accuracy != nil {
		acc = sql.NullFloat64{Float64: *loc.Accuracy, Valid: true}
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO shipment_locations (shipment_id, seq, lat, lng, accuracy, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?)`), id, seq, loc.Lat, loc.Lng, acc, nanos(loc.At))
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func containsStatus(list []model.Status, st model.Status) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
