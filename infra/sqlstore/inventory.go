package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

func (s *Store) SaveInventory(ctx context.Context, rec model.InventoryRecord) error {
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO inventory (sku, warehouse_code, on_hand, reserved, conflict, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (sku, warehouse_code) DO UPDATE SET
            on_hand = excluded.on_hand,
            reserved = excluded.reserved,
            conflict = excluded.conflict,
            updated_at = excluded.updated_at`),
		rec.SKU, rec.WarehouseCode, rec.OnHand, rec.Reserved, rec.Conflict, nanos(updated))
	if err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	return nil
}

func (s *Store) GetInventory(ctx context.Context, sku, warehouse string) (*model.InventoryRecord, error) {
	var row inventoryRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT sku, warehouse_code, on_hand, reserved, conflict, updated_at
        FROM inventory WHERE sku = ? AND warehouse_code = ?`), sku, warehouse)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "inventory %s@%s", sku, warehouse)
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	rec := row.toModel()
	return &rec, nil
}

func (s *Store) ListInventory(ctx context.Context, f store.InventoryFilter) ([]model.InventoryRecord, error) {
	query := `SELECT sku, warehouse_code, on_hand, reserved, conflict, updated_at FROM inventory WHERE 1=1`
	var args []any
	if f.SKU != "" {
		query += ` AND sku = ?`
		args = append(args, f.SKU)
	}
	if f.Warehouse != "" {
		query += ` AND warehouse_code = ?`
		args = append(args, f.Warehouse)
	}
	query += ` ORDER BY sku, warehouse_code`
	var rows []inventoryRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	out := make([]model.InventoryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// guarded runs a conditional stock update and maps "no row changed" to base.
func (s *Store) guarded(ctx context.Context, base *apperr.Error, msg, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(base, "%s", msg)
	}
	return nil
}

func (s *Store) Reserve(ctx context.Context, sku, warehouse string, qty int) error {
	return s.guarded(ctx, apperr.ErrInsufficientStock, fmt.Sprintf("%s@%s: requested %d", sku, warehouse, qty),
		`UPDATE inventory SET reserved = reserved + ?, updated_at = ?
        WHERE sku = ? AND warehouse_code = ? AND on_hand - reserved >= ?`,
		qty, nanos(time.Now()), sku, warehouse, qty)
}

func (s *Store) Release(ctx context.Context, sku, warehouse string, qty int) error {
	return s.guarded(ctx, apperr.ErrConcurrentUpdate, fmt.Sprintf("%s@%s: release %d exceeds reservation", sku, warehouse, qty),
		`UPDATE inventory SET reserved = reserved - ?, updated_at = ?
        WHERE sku = ? AND warehouse_code = ? AND reserved >= ?`,
		qty, nanos(time.Now()), sku, warehouse, qty)
}

func (s *Store) Consume(ctx context.Context, sku, warehouse string, qty int) error {
	return s.guarded(ctx, apperr.ErrConcurrentUpdate, fmt.Sprintf("%s@%s: consume %d exceeds reservation", sku, warehouse, qty),
		`UPDATE inventory SET reserved = reserved - ?, on_hand = on_hand - ?, updated_at = ?
        WHERE sku = ? AND warehouse_code = ? AND reserved >= ? AND on_hand >= ?`,
		qty, qty, nanos(time.Now()), sku, warehouse, qty, qty)
}

func (s *Store) Receive(ctx context.Context, sku, warehouse string, qty int) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO inventory (sku, warehouse_code, on_hand, reserved, conflict, updated_at)
        VALUES (?, ?, ?, 0, ?, ?)
        ON CONFLICT (sku, warehouse_code) DO UPDATE SET
            on_hand = inventory.on_hand + excluded.on_hand,
            updated_at = excluded.updated_at`),
		sku, warehouse, qty, false, nanos(time.Now()))
	if err != nil {
		return fmt.Errorf("receive %s@%s: %w", sku, warehouse, err)
	}
	return nil
}

func (s *Store) SetConflict(ctx context.Context, sku, warehouse string, flag bool) error {
	return s.guarded(ctx, apperr.ErrNotFound, fmt.Sprintf("inventory %s@%s", sku, warehouse),
		`UPDATE inventory SET conflict = ? WHERE sku = ? AND warehouse_code = ?`, flag, sku, warehouse)
}
