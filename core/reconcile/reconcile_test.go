package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func seedInventory(t *testing.T, st store.Store, recs ...model.InventoryRecord) {
	t.Helper()
	for _, r := range recs {
		require.NoError(t, st.SaveInventory(context.Background(), r))
	}
}

func packed(tracking, sku, warehouse string, prio model.Priority, created time.Time, reserved int) *model.Shipment {
	s := &model.Shipment{
		TrackingID: tracking, SKU: sku, Quantity: reserved, Direction: model.DirectionOutbound,
		Priority: prio, Zone: "Z1", WarehouseCode: warehouse, CreatedAt: created, Reserved: reserved,
	}
	s.AppendStatus(model.StatusPacked, created, "", "")
	return s
}

func TestDetectConflicts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedInventory(t, st,
		model.InventoryRecord{SKU: "X", WarehouseCode: "A", OnHand: 5, Reserved: 6},
		model.InventoryRecord{SKU: "X", WarehouseCode: "B", OnHand: 5, Reserved: 6},
		model.InventoryRecord{SKU: "Y", WarehouseCode: "A", OnHand: 5, Reserved: 5},
		model.InventoryRecord{SKU: "Y", WarehouseCode: "B", OnHand: 0, Reserved: 0},
	)
	r, err := NewReconciler(st, nil, nil, nil)
	require.NoError(t, err)

	got, err := r.DetectConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Conflict{SKU: "X", Warehouses: []string{"A", "B"}, TotalOnHand: 10, TotalReserved: 12}, got[0])

	rec, _ := st.GetInventory(ctx, "X", "A")
	assert.True(t, rec.Conflict)
	rec, _ = st.GetInventory(ctx, "Y", "A")
	assert.False(t, rec.Conflict)
}

func TestWins(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.Shipment
		want bool
	}{
		{"express beats older bulk", packed("A", "X", "A", model.PriorityExpress, t0.Add(time.Hour), 1), packed("B", "X", "B", model.PriorityBulk, t0, 1), true},
		{"standard vs bulk falls back to age", packed("A", "X", "A", model.PriorityStandard, t0.Add(time.Hour), 1), packed("B", "X", "B", model.PriorityBulk, t0, 1), false},
		{"older wins", packed("A", "X", "A", model.PriorityExpress, t0, 1), packed("B", "X", "B", model.PriorityExpress, t0.Add(time.Minute), 1), true},
		{"tracking id breaks ties", packed("B", "X", "A", model.PriorityBulk, t0, 1), packed("A", "X", "B", model.PriorityBulk, t0, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wins(tt.a, tt.b))
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedInventory(t, st,
		model.InventoryRecord{SKU: "X", WarehouseCode: "A", OnHand: 5, Reserved: 6, Conflict: true},
		model.InventoryRecord{SKU: "X", WarehouseCode: "B", OnHand: 5, Reserved: 6, Conflict: true},
	)
	require.NoError(t, st.CreateShipment(ctx, packed("ORD-A", "X", "A", model.PriorityStandard, t0, 6)))
	require.NoError(t, st.CreateShipment(ctx, packed("ORD-B", "X", "B", model.PriorityExpress, t0.Add(time.Hour), 6)))
	r, _ := NewReconciler(st, nil, nil, nil)
	req := Request{SKU: "X", WarehouseA: "A", WarehouseB: "B", OrderA: "ORD-A", OrderB: "ORD-B", QtyPerOrder: 6}

	first, err := r.Reconcile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-B", first.Winner)
	assert.Equal(t, "ORD-A", first.Loser)
	assert.True(t, first.Demoted)

	loser, _ := st.GetShipmentByTracking(ctx, "ORD-A")
	assert.Equal(t, model.StatusPending, loser.Status)
	assert.Equal(t, 0, loser.Reserved)
	history := len(loser.StatusHistory)
	recA, _ := st.GetInventory(ctx, "X", "A")
	assert.Equal(t, 0, recA.Reserved)
	assert.False(t, recA.Conflict)

	require.NoError(t, st.SetConflict(ctx, "X", "B", true))
	second, err := r.Reconcile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Winner, second.Winner)
	assert.Equal(t, first.Loser, second.Loser)
	assert.False(t, second.Demoted)

	loser, _ = st.GetShipmentByTracking(ctx, "ORD-A")
	assert.Len(t, loser.StatusHistory, history)
	recB, _ := st.GetInventory(ctx, "X", "B")
	assert.False(t, recB.Conflict)
	assert.Equal(t, 6, recB.Reserved)
}

func TestReconcile_Errors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateShipment(ctx, packed("ORD-A", "X", "A", model.PriorityStandard, t0, 1)))
	r, _ := NewReconciler(st, nil, nil, nil)

	_, err := r.Reconcile(ctx, Request{SKU: "X", OrderA: "ORD-A", OrderB: "MISSING"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = r.Reconcile(ctx, Request{SKU: "X", OrderA: "ORD-A"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestReconcile_ReleasesLoserReservationInFull(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedInventory(t, st,
		model.InventoryRecord{SKU: "X", WarehouseCode: "A", OnHand: 5, Reserved: 5, Conflict: true},
		model.InventoryRecord{SKU: "X", WarehouseCode: "B", OnHand: 5, Reserved: 5, Conflict: true},
	)
	require.NoError(t, st.CreateShipment(ctx, packed("OA", "X", "A", model.PriorityExpress, t0, 5)))
	require.NoError(t, st.CreateShipment(ctx, packed("OB", "X", "B", model.PriorityBulk, t0, 5)))
	r, _ := NewReconciler(st, nil, nil, nil)

	res, err := r.Reconcile(ctx, Request{SKU: "X", WarehouseA: "A", WarehouseB: "B", OrderA: "OA", OrderB: "OB", QtyPerOrder: 3})
	require.NoError(t, err)
	assert.Equal(t, "OB", res.Loser)

	loser, _ := st.GetShipmentByTracking(ctx, "OB")
	assert.Equal(t, 0, loser.Reserved)
	recB, _ := st.GetInventory(ctx, "X", "B")
	assert.Equal(t, loser.Reserved, recB.Reserved, "warehouse B keeps no reservation without an owner")
	recA, _ := st.GetInventory(ctx, "X", "A")
	assert.Equal(t, 5, recA.Reserved)
}

func TestReconcile_QtyPerOrderForLoserWithoutReservation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedInventory(t, st,
		model.InventoryRecord{SKU: "X", WarehouseCode: "A", OnHand: 5, Reserved: 5, Conflict: true},
		model.InventoryRecord{SKU: "X", WarehouseCode: "B", OnHand: 5, Reserved: 5, Conflict: true},
	)
	require.NoError(t, st.CreateShipment(ctx, packed("OA", "X", "A", model.PriorityExpress, t0, 5)))
	legacy := packed("OB", "X", "B", model.PriorityBulk, t0, 0)
	legacy.Quantity = 4
	require.NoError(t, st.CreateShipment(ctx, legacy))
	r, _ := NewReconciler(st, nil, nil, nil)

	_, err := r.Reconcile(ctx, Request{SKU: "X", WarehouseA: "A", WarehouseB: "B", OrderA: "OA", OrderB: "OB", QtyPerOrder: 3})
	require.NoError(t, err)
	recB, _ := st.GetInventory(ctx, "X", "B")
	assert.Equal(t, 2, recB.Reserved)
}
