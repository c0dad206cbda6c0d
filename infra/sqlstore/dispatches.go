package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// CommitAssignment dispatches every shipment and loads the driver in one
// transaction. Each shipment update is guarded by the state it was read in.
//
//gocyclo:ignore
func (s *Store) CommitAssignment(ctx context.Context, a store.Assignment) ([]*model.Shipment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT count(*) FROM drivers WHERE id = ?`), a.DriverID); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, apperr.New(apperr.ErrNotFound, "driver %s", a.DriverID)
	}

	var weight, volume float64
	out := make([]*model.Shipment, 0, len(a.ShipmentIDs))
	for _, id := range a.ShipmentIDs {
		sh, err := s.getShipment(ctx, tx, `id = ?`, id)
		if err != nil {
			return nil, err
		}
		if !sh.Dispatchable() {
			return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s is %s", sh.TrackingID, sh.Status)
		}
		prevStatus, prevUpdated := sh.Status, sh.UpdatedAt
		drv := a.DriverID
		sh.AssignedDriverID = &drv
		sh.AppendStatus(model.StatusDispatched, a.At, "", a.Method)
		history, err := json.Marshal(sh.StatusHistory)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE shipments SET status = ?, assigned_driver_id = ?,
            status_history = ?, updated_at = ?
            WHERE id = ? AND status = ? AND updated_at = ? AND assigned_driver_id IS NULL`),
			string(sh.Status), drv, string(history), nanos(sh.UpdatedAt), sh.ID, string(prevStatus), nanos(prevUpdated))
		if err != nil {
			return nil, fmt.Errorf("dispatch shipment %s: %w", sh.TrackingID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s changed concurrently", sh.TrackingID)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO dispatches (id, shipment_id, tracking_id, driver_id, method, status, dispatched_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			uuid.NewString(), sh.ID, sh.TrackingID, drv, a.Method, string(model.StatusDispatched), nanos(a.At), nanos(a.At))
		if err != nil {
			return nil, fmt.Errorf("insert dispatch record: %w", err)
		}
		weight += sh.Weight
		volume += sh.Volume
		out = append(out, sh)
	}

	query, args := loadUpdate(a.DriverID, weight, volume)
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("load driver %s: %w", a.DriverID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.New(apperr.ErrCapacityExceeded, "driver %s cannot take %.2f kg / %.2f m3", a.DriverID, weight, volume)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListDispatches(ctx context.Context, f store.DispatchFilter) ([]model.DispatchRecord, error) {
	query := `SELECT id, shipment_id, tracking_id, driver_id, method, status, dispatched_at, updated_at
        FROM dispatches WHERE 1=1`
	var args []any
	if f.DriverID != "" {
		query += ` AND driver_id = ?`
		args = append(args, f.DriverID)
	}
	if f.ShipmentID != "" {
		query += ` AND shipment_id = ?`
		args = append(args, f.ShipmentID)
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			names[i] = string(st)
		}
		query += ` AND status IN (?)`
		args = append(args, names)
	}
	query += ` ORDER BY dispatched_at, tracking_id`
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var rows []dispatchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	out := make([]model.DispatchRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) UpdateDispatchStatus(ctx context.Context, shipmentID string, st model.Status, at time.Time) error {
	return s.guarded(ctx, apperr.ErrNotFound, "dispatch record for shipment "+shipmentID,
		`UPDATE dispatches SET status = ?, updated_at = ? WHERE shipment_id = ?`, string(st), nanos(at), shipmentID)
}
