package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

const shipmentColumns = `id, tracking_id, sku, quantity, direction, priority, zone, warehouse_code,
        weight, volume, status, assigned_driver_id, accepted, accepted_at, batch_id, sla_tier,
        sla_deadline, escalated, window_start, window_end, reserved, received_quantity,
        created_at, updated_at, status_history`

type shipmentRow struct {
	ID               string         `db:"id"`
	TrackingID       string         `db:"tracking_id"`
	SKU              string         `db:"sku"`
	Quantity         int            `db:"quantity"`
	Direction        string         `db:"direction"`
	Priority         int            `db:"priority"`
	Zone             string         `db:"zone"`
	WarehouseCode    string         `db:"warehouse_code"`
	Weight           float64        `db:"weight"`
	Volume           float64        `db:"volume"`
	Status           string         `db:"status"`
	AssignedDriverID sql.NullString `db:"assigned_driver_id"`
	Accepted         bool           `db:"accepted"`
	AcceptedAt       sql.NullInt64  `db:"accepted_at"`
	BatchID          sql.NullString `db:"batch_id"`
	SLATier          string         `db:"sla_tier"`
	SLADeadline      int64          `db:"sla_deadline"`
	Escalated        bool           `db:"escalated"`
	WindowStart      sql.NullInt64  `db:"window_start"`
	WindowEnd        sql.NullInt64  `db:"window_end"`
	Reserved         int            `db:"reserved"`
	ReceivedQuantity sql.NullInt64  `db:"received_quantity"`
	CreatedAt        int64          `db:"created_at"`
	UpdatedAt        int64          `db:"updated_at"`
	StatusHistory    string         `db:"status_history"`
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func toShipmentRow(s *model.Shipment) (shipmentRow, error) {
	history, err := json.Marshal(s.StatusHistory)
	if err != nil {
		return shipmentRow{}, fmt.Errorf("encode status history: %w", err)
	}
	r := shipmentRow{
		ID:               s.ID,
		TrackingID:       s.TrackingID,
		SKU:              s.SKU,
		Quantity:         s.Quantity,
		Direction:        string(s.Direction),
		Priority:         int(s.Priority),
		Zone:             s.Zone,
		WarehouseCode:    s.WarehouseCode,
		Weight:           s.Weight,
		Volume:           s.Volume,
		Status:           string(s.Status),
		AssignedDriverID: nullString(s.AssignedDriverID),
		Accepted:         s.Accepted,
		BatchID:          nullString(s.BatchID),
		SLATier:          string(s.SLATier),
		SLADeadline:      nanos(s.SLADeadline),
		Escalated:        s.Escalated,
		Reserved:         s.Reserved,
		CreatedAt:        nanos(s.CreatedAt),
		UpdatedAt:        nanos(s.UpdatedAt),
		StatusHistory:    string(history),
	}
	if s.AcceptedAt != nil {
		r.AcceptedAt = sql.NullInt64{Int64: nanos(*s.AcceptedAt), Valid: true}
	}
	if s.DeliveryWindow != nil {
		r.WindowStart = sql.NullInt64{Int64: nanos(s.DeliveryWindow.Start), Valid: true}
		r.WindowEnd = sql.NullInt64{Int64: nanos(s.DeliveryWindow.End), Valid: true}
	}
	if s.ReceivedQuantity != nil {
		r.ReceivedQuantity = sql.NullInt64{Int64: int64(*s.ReceivedQuantity), Valid: true}
	}
	return r, nil
}

func (r shipmentRow) toModel() (*model.Shipment, error) {
	s := &model.Shipment{
		ID:               r.ID,
		TrackingID:       r.TrackingID,
		SKU:              r.SKU,
		Quantity:         r.Quantity,
		Direction:        model.Direction(r.Direction),
		Priority:         model.Priority(r.Priority),
		Zone:             r.Zone,
		WarehouseCode:    r.WarehouseCode,
		Weight:           r.Weight,
		Volume:           r.Volume,
		Status:           model.Status(r.Status),
		AssignedDriverID: stringPtr(r.AssignedDriverID),
		Accepted:         r.Accepted,
		BatchID:          stringPtr(r.BatchID),
		SLATier:          model.SLATier(r.SLATier),
		SLADeadline:      fromNanos(r.SLADeadline),
		Escalated:        r.Escalated,
		Reserved:         r.Reserved,
		CreatedAt:        fromNanos(r.CreatedAt),
		UpdatedAt:        fromNanos(r.UpdatedAt),
	}
	if r.AcceptedAt.Valid {
		t := fromNanos(r.AcceptedAt.Int64)
		s.AcceptedAt = &t
	}
	if r.WindowStart.Valid && r.WindowEnd.Valid {
		s.DeliveryWindow = &model.TimeWindow{Start: fromNanos(r.WindowStart.Int64), End: fromNanos(r.WindowEnd.Int64)}
	}
	if r.ReceivedQuantity.Valid {
		v := int(r.ReceivedQuantity.Int64)
		s.ReceivedQuantity = &v
	}
	if err := json.Unmarshal([]byte(r.StatusHistory), &s.StatusHistory); err != nil {
		return nil, fmt.Errorf("decode status history of %s: %w", r.TrackingID, err)
	}
	return s, nil
}

type locationRow struct {
	ShipmentID string          `db:"shipment_id"`
	Seq        int             `db:"seq"`
	Lat        float64         `db:"lat"`
	Lng        float64         `db:"lng"`
	Accuracy   sql.NullFloat64 `db:"accuracy"`
	RecordedAt int64           `db:"recorded_at"`
}

func (r locationRow) toModel() model.LocationEntry {
	e := model.LocationEntry{Lat: r.Lat, Lng: r.Lng, At: fromNanos(r.RecordedAt)}
	if r.Accuracy.Valid {
		v := r.Accuracy.Float64
		e.Accuracy = &v
	}
	return e
}

type driverRow struct {
	ID                string        `db:"id"`
	Name              string        `db:"name"`
	Zone              string        `db:"zone"`
	Capacity          float64       `db:"capacity"`
	CurrentLoad       float64       `db:"current_load"`
	VolumeCapacity    float64       `db:"volume_capacity"`
	CurrentVolume     float64       `db:"current_volume"`
	Available         bool          `db:"available"`
	CumulativeMinutes int           `db:"cumulative_minutes"`
	ContinuousMinutes int           `db:"continuous_minutes"`
	ShiftStart        sql.NullInt64 `db:"shift_start"`
	ShiftEnd          sql.NullInt64 `db:"shift_end"`
}

func toDriverRow(d model.Driver) driverRow {
	r := driverRow{
		ID:                d.ID,
		Name:              d.Name,
		Zone:              d.Zone,
		Capacity:          d.Capacity,
		CurrentLoad:       d.CurrentLoad,
		VolumeCapacity:    d.VolumeCapacity,
		CurrentVolume:     d.CurrentVolume,
		Available:         d.Available,
		CumulativeMinutes: d.CumulativeDrivingMinutes,
		ContinuousMinutes: d.ContinuousDrivingMinutes,
	}
	if d.Shift != nil {
		r.ShiftStart = sql.NullInt64{Int64: nanos(d.Shift.Start), Valid: true}
		r.ShiftEnd = sql.NullInt64{Int64: nanos(d.Shift.End), Valid: true}
	}
	return r
}

func (r driverRow) toModel() model.Driver {
	d := model.Driver{
		ID:                       r.ID,
		Name:                     r.Name,
		Zone:                     r.Zone,
		Capacity:                 r.Capacity,
		CurrentLoad:              r.CurrentLoad,
		VolumeCapacity:           r.VolumeCapacity,
		CurrentVolume:            r.CurrentVolume,
		Available:                r.Available,
		CumulativeDrivingMinutes: r.CumulativeMinutes,
		ContinuousDrivingMinutes: r.ContinuousMinutes,
	}
	if r.ShiftStart.Valid && r.ShiftEnd.Valid {
		d.Shift = &model.ShiftWindow{Start: fromNanos(r.ShiftStart.Int64), End: fromNanos(r.ShiftEnd.Int64)}
	}
	return d
}

type inventoryRow struct {
	SKU           string `db:"sku"`
	WarehouseCode string `db:"warehouse_code"`
	OnHand        int    `db:"on_hand"`
	Reserved      int    `db:"reserved"`
	Conflict      bool   `db:"conflict"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r inventoryRow) toModel() model.InventoryRecord {
	return model.InventoryRecord{
		SKU:           r.SKU,
		WarehouseCode: r.WarehouseCode,
		OnHand:        r.OnHand,
		Reserved:      r.Reserved,
		Conflict:      r.Conflict,
		UpdatedAt:     fromNanos(r.UpdatedAt),
	}
}

type dispatchRow struct {
	ID           string `db:"id"`
	ShipmentID   string `db:"shipment_id"`
	TrackingID   string `db:"tracking_id"`
	DriverID     string `db:"driver_id"`
	Method       string `db:"method"`
	Status       string `db:"status"`
	DispatchedAt int64  `db:"dispatched_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r dispatchRow) toModel() model.DispatchRecord {
	return model.DispatchRecord{
		ID:           r.ID,
		ShipmentID:   r.ShipmentID,
		TrackingID:   r.TrackingID,
		DriverID:     r.DriverID,
		Method:       r.Method,
		Status:       model.Status(r.Status),
		DispatchedAt: fromNanos(r.DispatchedAt),
		UpdatedAt:    fromNanos(r.UpdatedAt),
	}
}
