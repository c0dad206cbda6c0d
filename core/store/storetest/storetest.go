// Package storetest holds a behavioural suite every store.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// Factory returns an empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func shipment(id, tracking string, prio model.Priority, created time.Time, st model.Status) *model.Shipment {
	s := &model.Shipment{
		ID: id, TrackingID: tracking, SKU: "X", Quantity: 2, Direction: model.DirectionOutbound,
		Priority: prio, Zone: "Z1", WarehouseCode: "W1", Weight: 10, Volume: 1,
		SLATier: model.TierGold, SLADeadline: created.Add(12 * time.Hour), CreatedAt: created,
	}
	s.AppendStatus(st, created, "", "")
	return s
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("Shipments", func(t *testing.T) { testShipments(t, newStore(t)) })
	t.Run("ListShipments", func(t *testing.T) { testListShipments(t, newStore(t)) })
	t.Run("Transition", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("Inventory", func(t *testing.T) { testInventory(t, newStore(t)) })
	t.Run("Drivers", func(t *testing.T) { testDrivers(t, newStore(t)) })
	t.Run("CommitAssignment", func(t *testing.T) { testCommit(t, newStore(t)) })
}

func testShipments(t *testing.T, st store.Store) {
	ctx := context.Background()
	s := shipment("s1", "T1", model.PriorityExpress, base, model.StatusPacked)
	batch := "B1"
	s.BatchID = &batch
	s.DeliveryWindow = &model.TimeWindow{Start: base, End: base.Add(2 * time.Hour)}
	s.Reserved = 2
	if err := st.CreateShipment(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.CreateShipment(ctx, shipment("s2", "T1", model.PriorityBulk, base, model.StatusPacked)); !errors.Is(err, apperr.ErrDuplicateShipment) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := st.GetShipment(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := st.GetShipmentByTracking(ctx, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "s1" || got.Priority != model.PriorityExpress || got.Reserved != 2 || got.BatchID == nil || *got.BatchID != "B1" {
		t.Fatalf("unexpected shipment %+v", got)
	}
	if got.DeliveryWindow == nil || !got.DeliveryWindow.End.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("delivery window lost: %+v", got.DeliveryWindow)
	}
	if !got.SLADeadline.Equal(base.Add(12*time.Hour)) || len(got.StatusHistory) != 1 {
		t.Fatalf("unexpected deadline or history: %s %d", got.SLADeadline, len(got.StatusHistory))
	}

	acc := 3.0
	if err := st.AppendLocation(ctx, "s1", model.LocationEntry{Lat: 1, Lng: 2, Accuracy: &acc, At: base}); err != nil {
		t.Fatalf("append location: %v", err)
	}
	if err := st.AppendLocation(ctx, "s1", model.LocationEntry{Lat: 3, Lng: 4, At: base.Add(time.Minute)}); err != nil {
		t.Fatalf("append location: %v", err)
	}
	if err := st.AppendLocation(ctx, "missing", model.LocationEntry{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, _ = st.GetShipment(ctx, "s1")
	if len(got.LocationHistory) != 2 || got.LocationHistory[0].Accuracy == nil || got.LocationHistory[1].Accuracy != nil || got.LocationHistory[1].Lat != 3 {
		t.Fatalf("unexpected locations %+v", got.LocationHistory)
	}

	changed, err := st.MarkEscalated(ctx, "s1", base.Add(13*time.Hour))
	if err != nil || !changed {
		t.Fatalf("first escalation: %v %v", changed, err)
	}
	changed, err = st.MarkEscalated(ctx, "s1", base.Add(14*time.Hour))
	if err != nil || changed {
		t.Fatalf("escalation must be one-way: %v %v", changed, err)
	}
	if _, err := st.MarkEscalated(ctx, "missing", base); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testListShipments(t *testing.T, st store.Store) {
	ctx := context.Background()
	for _, s := range []*model.Shipment{
		shipment("a", "BULK", model.PriorityBulk, base, model.StatusPacked),
		shipment("b", "STD-LATE", model.PriorityStandard, base.Add(time.Minute), model.StatusPacked),
		shipment("c", "STD-EARLY", model.PriorityStandard, base, model.StatusReceived),
		shipment("d", "EXP", model.PriorityExpress, base.Add(time.Hour), model.StatusPending),
	} {
		if err := st.CreateShipment(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	all, err := st.ListShipments(ctx, store.ShipmentFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"EXP", "STD-EARLY", "STD-LATE", "BULK"}
	if len(all) != len(want) {
		t.Fatalf("expected %d shipments, got %d", len(want), len(all))
	}
	for i, s := range all {
		if s.TrackingID != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], s.TrackingID)
		}
	}
	eligible, _ := st.ListShipments(ctx, store.ShipmentFilter{
		Direction:  model.DirectionOutbound,
		Statuses:   []model.Status{model.StatusPacked, model.StatusReceived},
		Unassigned: true,
	})
	if len(eligible) != 3 {
		t.Fatalf("expected 3 dispatchable shipments, got %d", len(eligible))
	}
	overdue, _ := st.ListShipments(ctx, store.ShipmentFilter{NotEscalated: true, DeadlineBefore: base.Add(12*time.Hour + 30*time.Second)})
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue shipments, got %d", len(overdue))
	}
}

func testTransition(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.CreateShipment(ctx, shipment("s1", "T1", model.PriorityBulk, base, model.StatusPacked)); err != nil {
		t.Fatalf("create: %v", err)
	}
	zero := 0
	got, err := st.TransitionShipment(ctx, store.Transition{
		ShipmentID: "s1", From: []model.Status{model.StatusPacked}, To: model.StatusPending,
		At: base.Add(time.Minute), Actor: "reservation", Note: "preempted by T2", Reserved: &zero,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != model.StatusPending || len(got.StatusHistory) != 2 || *got.StatusHistory[1].Note != "preempted by T2" {
		t.Fatalf("unexpected shipment %+v", got)
	}
	_, err = st.TransitionShipment(ctx, store.Transition{
		ShipmentID: "s1", From: []model.Status{model.StatusPacked}, To: model.StatusPending, At: base.Add(2 * time.Minute),
	})
	if !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
	if _, err := st.TransitionShipment(ctx, store.Transition{ShipmentID: "missing"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	stored, _ := st.GetShipment(ctx, "s1")
	if len(stored.StatusHistory) != 2 {
		t.Fatalf("failed transition must not touch history, got %d entries", len(stored.StatusHistory))
	}
}

func testInventory(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.Reserve(ctx, "X", "W1", 1); !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("reserve without stock: %v", err)
	}
	if err := st.Receive(ctx, "X", "W1", 5); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := st.Receive(ctx, "X", "W1", 3); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := st.Reserve(ctx, "X", "W1", 6); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := st.Reserve(ctx, "X", "W1", 3); !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("over-reserve: %v", err)
	}
	if err := st.Release(ctx, "X", "W1", 7); !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Fatalf("over-release: %v", err)
	}
	if err := st.Consume(ctx, "X", "W1", 2); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := st.Release(ctx, "X", "W1", 1); err != nil {
		t.Fatalf("release: %v", err)
	}
	rec, err := st.GetInventory(ctx, "X", "W1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.OnHand != 6 || rec.Reserved != 3 {
		t.Fatalf("expected 6 on hand / 3 reserved, got %d/%d", rec.OnHand, rec.Reserved)
	}
	if err := st.SetConflict(ctx, "X", "W1", true); err != nil {
		t.Fatalf("set conflict: %v", err)
	}
	if err := st.SetConflict(ctx, "X", "NOPE", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := st.SaveInventory(ctx, model.InventoryRecord{SKU: "A", WarehouseCode: "W2", OnHand: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	list, _ := st.ListInventory(ctx, store.InventoryFilter{})
	if len(list) != 2 || list[0].SKU != "A" || !list[1].Conflict {
		t.Fatalf("unexpected inventory list %+v", list)
	}
	list, _ = st.ListInventory(ctx, store.InventoryFilter{SKU: "X"})
	if len(list) != 1 {
		t.Fatalf("expected filtered list, got %+v", list)
	}
}

func testDrivers(t *testing.T, st store.Store) {
	ctx := context.Background()
	for _, d := range []model.Driver{
		{ID: "d2", Zone: "Z1", Capacity: 100, Available: true},
		{ID: "d1", Zone: "Z1", Capacity: 50, VolumeCapacity: 5, Available: true, CumulativeDrivingMinutes: 30},
		{ID: "d3", Zone: "Z1", Capacity: 50, Available: false},
		{ID: "d4", Zone: "Z2", Capacity: 50, Available: true},
	} {
		if err := st.SaveDriver(ctx, d); err != nil {
			t.Fatalf("save driver: %v", err)
		}
	}
	list, err := st.ListDrivers(ctx, store.DriverFilter{Zone: "Z1", AvailableOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "d1" || list[1].ID != "d2" || list[0].CumulativeDrivingMinutes != 30 {
		t.Fatalf("unexpected drivers %+v", list)
	}
	if err := st.AdjustDriverLoad(ctx, "d1", 40, 4); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := st.AdjustDriverLoad(ctx, "d1", 20, 0); !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	if err := st.AdjustDriverLoad(ctx, "d1", 0, 2); !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("expected volume capacity exceeded, got %v", err)
	}
	if err := st.AdjustDriverLoad(ctx, "d1", -100, -100); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	d, _ := st.GetDriver(ctx, "d1")
	if d.CurrentLoad != 0 || d.CurrentVolume != 0 {
		t.Fatalf("load must clamp at zero, got %f/%f", d.CurrentLoad, d.CurrentVolume)
	}
	if err := st.AdjustDriverLoad(ctx, "missing", 1, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testCommit(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.SaveDriver(ctx, model.Driver{ID: "d1", Zone: "Z1", Capacity: 25, Available: true}); err != nil {
		t.Fatalf("save driver: %v", err)
	}
	for _, s := range []*model.Shipment{
		shipment("a", "A", model.PriorityExpress, base, model.StatusPacked),
		shipment("b", "B", model.PriorityExpress, base, model.StatusPacked),
		shipment("c", "C", model.PriorityExpress, base, model.StatusPending),
		shipment("d", "D", model.PriorityExpress, base, model.StatusPacked),
	} {
		if err := st.CreateShipment(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	at := base.Add(time.Hour)
	if _, err := st.CommitAssignment(ctx, store.Assignment{DriverID: "d1", ShipmentIDs: []string{"a", "c"}, Method: model.MethodBatchAssign, At: at}); !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Fatalf("expected ineligible shipment to abort, got %v", err)
	}
	if _, err := st.CommitAssignment(ctx, store.Assignment{DriverID: "d1", ShipmentIDs: []string{"a", "b", "d"}, Method: model.MethodBatchAssign, At: at}); !errors.Is(err, apperr.ErrCapacityExceeded) {
		t.Fatalf("expected capacity to abort, got %v", err)
	}
	a, _ := st.GetShipment(ctx, "a")
	if a.Status != model.StatusPacked || a.AssignedDriverID != nil {
		t.Fatalf("aborted commit must not write: %+v", a)
	}

	out, err := st.CommitAssignment(ctx, store.Assignment{DriverID: "d1", ShipmentIDs: []string{"a", "b"}, Method: model.MethodAutoAssign, At: at})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(out) != 2 || out[0].Status != model.StatusDispatched || out[0].PreviousStatus() != model.StatusPacked {
		t.Fatalf("unexpected commit result %+v", out)
	}
	d, _ := st.GetDriver(ctx, "d1")
	if d.CurrentLoad != 20 || d.CurrentVolume != 2 {
		t.Fatalf("driver load %f/%f", d.CurrentLoad, d.CurrentVolume)
	}
	recs, err := st.ListDispatches(ctx, store.DispatchFilter{DriverID: "d1"})
	if err != nil || len(recs) != 2 || recs[0].Method != model.MethodAutoAssign {
		t.Fatalf("unexpected dispatch records %+v %v", recs, err)
	}
	if _, err := st.CommitAssignment(ctx, store.Assignment{DriverID: "d1", ShipmentIDs: []string{"a"}, At: at}); !errors.Is(err, apperr.ErrConcurrentUpdate) {
		t.Fatalf("double assignment must fail, got %v", err)
	}
	if err := st.UpdateDispatchStatus(ctx, "a", model.StatusDelivered, at.Add(time.Hour)); err != nil {
		t.Fatalf("update dispatch: %v", err)
	}
	if err := st.UpdateDispatchStatus(ctx, "c", model.StatusDelivered, at); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	delivered, _ := st.ListDispatches(ctx, store.DispatchFilter{Statuses: []model.Status{model.StatusDelivered}})
	if len(delivered) != 1 || delivered[0].ShipmentID != "a" {
		t.Fatalf("unexpected delivered records %+v", delivered)
	}
	if _, err := st.CommitAssignment(ctx, store.Assignment{DriverID: "nobody", ShipmentIDs: []string{"d"}, At: at}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found driver, got %v", err)
	}
}
