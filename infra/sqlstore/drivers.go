package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

const driverColumns = `id, name, zone, capacity, current_load, volume_capacity, current_volume, available,
        cumulative_minutes, continuous_minutes, shift_start, shift_end`

func (s *Store) SaveDriver(ctx context.Context, d model.Driver) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO drivers (`+driverColumns+`) VALUES (
        :id, :name, :zone, :capacity, :current_load, :volume_capacity, :current_volume, :available,
        :cumulative_minutes, :continuous_minutes, :shift_start, :shift_end)
        ON CONFLICT (id) DO UPDATE SET
            name = excluded.name,
            zone = excluded.zone,
            capacity = excluded.capacity,
            current_load = excluded.current_load,
            volume_capacity = excluded.volume_capacity,
            current_volume = excluded.current_volume,
            available = excluded.available,
            cumulative_minutes = excluded.cumulative_minutes,
            continuous_minutes = excluded.continuous_minutes,
            shift_start = excluded.shift_start,
            shift_end = excluded.shift_end`, toDriverRow(d))
	if err != nil {
		return fmt.Errorf("save driver: %w", err)
	}
	return nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	var row driverRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+driverColumns+` FROM drivers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "driver %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	d := row.toModel()
	return &d, nil
}

func (s *Store) ListDrivers(ctx context.Context, f store.DriverFilter) ([]model.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE 1=1`
	var args []any
	if f.Zone != "" {
		query += ` AND zone = ?`
		args = append(args, f.Zone)
	}
	if f.AvailableOnly {
		query += ` AND available = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id`
	var rows []driverRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	out := make([]model.Driver, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// loadUpdate builds the guarded load increment shared by AdjustDriverLoad
// and CommitAssignment. Loads never drop below zero and increases must stay
// within capacity.
func loadUpdate(id string, weight, volume float64) (string, []any) {
	query := `UPDATE drivers SET
            current_load = CASE WHEN current_load + ? < 0 THEN 0 ELSE current_load + ? END,
            current_volume = CASE WHEN current_volume + ? < 0 THEN 0 ELSE current_volume + ? END
        WHERE id = ?`
	args := []any{weight, weight, volume, volume, id}
	if weight > 0 {
		query += ` AND current_load + ? <= capacity`
		args = append(args, weight)
	}
	if volume > 0 {
		query += fmt.Sprintf(` AND current_volume + ? <= CASE WHEN volume_capacity > 0 THEN volume_capacity ELSE %g END`, model.DefaultVolumeCapacity)
		args = append(args, volume)
	}
	return query, args
}

func (s *Store) AdjustDriverLoad(ctx context.Context, id string, weight, volume float64) error {
	query, args := loadUpdate(id, weight, volume)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("adjust driver load: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetDriver(ctx, id); err != nil {
			return err
		}
		return apperr.New(apperr.ErrCapacityExceeded, "driver %s cannot take %.2f kg / %.2f m3", id, weight, volume)
	}
	return nil
}
