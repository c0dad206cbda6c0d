package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/regulation"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

type recordingSink struct {
	passes      []metrics.PassEvent
	assignments []metrics.AssignmentEvent
}

func (r *recordingSink) RecordDispatchPass(ev metrics.PassEvent) error {
	r.passes = append(r.passes, ev)
	return nil
}

func (r *recordingSink) RecordAssignments(evs []metrics.AssignmentEvent) error {
	r.assignments = append(r.assignments, evs...)
	return nil
}

func newTestManager(t *testing.T, st store.Store, sink metrics.MetricsSink, bus eventbus.EventBus) *Manager {
	t.Helper()
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	m, err := NewManager(st, Config{}, sink, bus, nil)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	m.SetClock(func() time.Time { return testNow })
	return m
}

func seed(t *testing.T, st store.Store, drivers []model.Driver, shipments ...*model.Shipment) {
	t.Helper()
	ctx := context.Background()
	for _, d := range drivers {
		if err := st.SaveDriver(ctx, d); err != nil {
			t.Fatalf("save driver: %v", err)
		}
	}
	for _, s := range shipments {
		if err := st.CreateShipment(ctx, s); err != nil {
			t.Fatalf("create shipment: %v", err)
		}
	}
}

func TestRunAutoAssignment_ZoneScenario(t *testing.T) {
	st := store.NewMemoryStore()
	bus := eventbus.NewWithBuffer(16)
	sub := bus.Subscribe()
	t.Cleanup(bus.Close)
	sink := &recordingSink{}
	mgr := newTestManager(t, st, sink, bus)
	seed(t, st,
		[]model.Driver{{ID: "d1", Zone: "Z1", Capacity: 100, VolumeCapacity: 20, Available: true}},
		outbound("E", "Z1", model.PriorityExpress, 40, testNow),
		outbound("S", "Z1", model.PriorityStandard, 40, testNow.Add(time.Second)),
		outbound("B", "Z1", model.PriorityBulk, 40, testNow.Add(2*time.Second)),
	)

	res, err := mgr.RunAutoAssignment(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Assigned != 2 || res.Eligible != 3 {
		t.Fatalf("assigned %d of %d", res.Assigned, res.Eligible)
	}
	if got := res.Assignments["d1"]; len(got) != 2 || got[0] != "E" || got[1] != "S" {
		t.Fatalf("unexpected assignments %v", got)
	}
	if len(res.Unassigned) != 1 || res.Unassigned[0] != "B" {
		t.Fatalf("unexpected unassigned %v", res.Unassigned)
	}
	// 0.40*2/3 + 0.35*1 + 0.25*0.8 = 0.8167
	if res.Score != 82 {
		t.Fatalf("expected score 82, got %f", res.Score)
	}
	if res.ExpressCoverage != 100 || res.Utilization != 80 {
		t.Fatalf("coverage %f utilization %f", res.ExpressCoverage, res.Utilization)
	}

	d, _ := st.GetDriver(context.Background(), "d1")
	if d.CurrentLoad != 80 || d.CurrentLoad > d.Capacity {
		t.Fatalf("driver load %f", d.CurrentLoad)
	}
	bulk, _ := st.GetShipmentByTracking(context.Background(), "B")
	if bulk.Status != model.StatusPacked || bulk.AssignedDriverID != nil {
		t.Fatalf("bulk shipment changed: %+v", bulk)
	}
	recs, _ := st.ListDispatches(context.Background(), store.DispatchFilter{DriverID: "d1"})
	if len(recs) != 2 {
		t.Fatalf("expected 2 dispatch records, got %d", len(recs))
	}

	var assigned []events.DispatchAssigned
	for len(sub) > 0 {
		if ev, ok := (<-sub).(events.DispatchAssigned); ok {
			assigned = append(assigned, ev)
		}
	}
	if len(assigned) != 2 {
		t.Fatalf("expected 2 dispatch events, got %d", len(assigned))
	}
	for _, ev := range assigned {
		if ev.From != model.StatusPacked || ev.To != model.StatusDispatched || ev.Method != model.MethodAutoAssign {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
	if len(sink.passes) != 1 || sink.passes[0].Assigned != 2 || len(sink.assignments) != 2 {
		t.Fatalf("sink not updated: %+v %+v", sink.passes, sink.assignments)
	}
}

func TestRunAutoAssignment_ExpressBeforeBulk(t *testing.T) {
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	seed(t, st,
		[]model.Driver{{ID: "d1", Zone: "Z1", Capacity: 100, Available: true}},
		outbound("B", "Z1", model.PriorityBulk, 10, testNow),
		outbound("E2", "Z1", model.PriorityExpress, 10, testNow.Add(2*time.Second)),
		outbound("E1", "Z1", model.PriorityExpress, 10, testNow.Add(time.Second)),
	)
	res, err := mgr.RunAutoAssignment(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := res.Assignments["d1"]
	want := []string{"E1", "E2", "B"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRunAutoAssignment_Deterministic(t *testing.T) {
	build := func() []string {
		st := store.NewMemoryStore()
		mgr := newTestManager(t, st, nil, nil)
		seed(t, st,
			[]model.Driver{
				{ID: "a", Zone: "Z1", Capacity: 50, Available: true},
				{ID: "b", Zone: "Z1", Capacity: 50, Available: true},
				{ID: "c", Zone: "Z2", Capacity: 30, Available: true},
			},
			outbound("1", "Z1", model.PriorityStandard, 30, testNow),
			outbound("2", "Z1", model.PriorityExpress, 30, testNow),
			outbound("3", "Z1", model.PriorityBulk, 20, testNow),
			outbound("4", "Z2", model.PriorityStandard, 20, testNow),
			outbound("5", "Z2", model.PriorityStandard, 20, testNow.Add(time.Second)),
		)
		res, err := mgr.RunAutoAssignment(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return append(append(append(res.Assignments["a"], "|"), res.Assignments["b"]...), res.Assignments["c"]...)
	}
	first := build()
	for i := 0; i < 5; i++ {
		next := build()
		if len(next) != len(first) {
			t.Fatalf("run %d differs: %v vs %v", i, next, first)
		}
		for j := range first {
			if next[j] != first[j] {
				t.Fatalf("run %d differs: %v vs %v", i, next, first)
			}
		}
	}
}

func TestRunAutoAssignment_NoEligible(t *testing.T) {
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	_, err := mgr.RunAutoAssignment(context.Background())
	if !errors.Is(err, apperr.ErrNoEligibleShipments) || !IsNothingToDo(err) {
		t.Fatalf("expected no eligible shipments, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindPrecondition {
		t.Fatalf("unexpected kind %s", apperr.KindOf(err))
	}
}

func TestRunAutoAssignment_ZoneWithoutDrivers(t *testing.T) {
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	seed(t, st,
		[]model.Driver{{ID: "off", Zone: "Z1", Capacity: 100, Available: false}},
		outbound("A", "Z1", model.PriorityExpress, 10, testNow),
	)
	res, err := mgr.RunAutoAssignment(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Assigned != 0 || len(res.Unassigned) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ExpressCoverage != 0 || res.Utilization != 0 {
		t.Fatalf("unexpected percentages %+v", res)
	}
}

func TestRunAutoAssignment_Metrics(t *testing.T) {
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	seed(t, st,
		[]model.Driver{{ID: "d1", Zone: "Z1", Capacity: 50, Available: true}},
		outbound("A", "Z1", model.PriorityExpress, 40, testNow),
		outbound("B", "Z1", model.PriorityBulk, 40, testNow),
	)
	if _, err := mgr.RunAutoAssignment(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if v := testutil.ToFloat64(collectors.assigned.WithLabelValues("Z1", "EXPRESS")); v != 1 {
		t.Errorf("assigned expected 1 got %f", v)
	}
	if v := testutil.ToFloat64(collectors.unassigned.WithLabelValues("Z1")); v != 1 {
		t.Errorf("unassigned expected 1 got %f", v)
	}
	if v := testutil.ToFloat64(collectors.score); v <= 0 {
		t.Errorf("score gauge not set")
	}
	if count := testutil.CollectAndCount(collectors.duration); count == 0 {
		t.Errorf("pass duration not observed")
	}
	if v := testutil.ToFloat64(collectors.zoneLoadFactor.WithLabelValues("Z1")); v != 0.8 {
		t.Errorf("zone load factor expected 0.8 got %f", v)
	}
}

func TestRunAutoAssignment_AuditLog(t *testing.T) {
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	audit, err := logging.NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("audit store: %v", err)
	}
	mgr.SetLogStore(audit)
	t.Cleanup(func() { _ = mgr.Close() })
	seed(t, st,
		[]model.Driver{{ID: "d1", Zone: "Z1", Capacity: 50, Available: true}},
		outbound("A", "Z1", model.PriorityExpress, 10, testNow),
	)
	res, err := mgr.RunAutoAssignment(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	recs, err := audit.Query(context.Background(), logging.LogQuery{TrackingID: "A"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 || recs[0].PassID != res.PassID || recs[0].Result == nil {
		t.Fatalf("unexpected audit records %+v", recs)
	}
}

func batchShipment(tracking, batch string, weight float64) *model.Shipment {
	s := outbound(tracking, "Z1", model.PriorityStandard, weight, testNow)
	s.BatchID = &batch
	return s
}

func TestAssignBatch_Errors(t *testing.T) {
	delivered := batchShipment("DONE", "b-done", 1)
	delivered.AppendStatus(model.StatusDispatched, testNow, "", "")
	otherZone := batchShipment("FAR", "b-far", 1)
	otherZone.Zone = "Z2"
	late := batchShipment("LATE", "b-late", 1)
	late.DeliveryWindow = &model.TimeWindow{Start: testNow, End: testNow.Add(10 * time.Minute)}

	tests := []struct {
		name   string
		batch  string
		driver string
		want   *apperr.Error
	}{
		{"missing batch id", "", "d1", apperr.ErrValidation},
		{"unknown batch", "b-none", "d1", apperr.ErrNotFound},
		{"unknown driver", "b-heavy", "ghost", apperr.ErrNotFound},
		{"unavailable driver", "b-heavy", "off", apperr.ErrDriverUnavailable},
		{"capacity", "b-heavy", "d1", apperr.ErrCapacityExceeded},
		{"regulation", "b-light", "tired", apperr.ErrRegulationViolation},
		{"time window", "b-late", "d1", apperr.ErrTimeWindowConflict},
		{"zone", "b-far", "d1", apperr.ErrZoneMismatch},
		{"ineligible", "b-done", "d1", apperr.ErrIneligibleShipment},
	}
	st := store.NewMemoryStore()
	mgr := newTestManager(t, st, nil, nil)
	seed(t, st,
		[]model.Driver{
			{ID: "d1", Zone: "Z1", Capacity: 50, Available: true},
			{ID: "off", Zone: "Z1", Capacity: 50},
			{ID: "tired", Zone: "Z1", Capacity: 50, Available: true, CumulativeDrivingMinutes: 570},
		},
		batchShipment("H1", "b-heavy", 30), batchShipment("H2", "b-heavy", 30),
		batchShipment("L1", "b-light", 1),
		delivered, otherZone, late,
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.AssignBatch(context.Background(), tt.batch, tt.driver)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %s, got %v", tt.want.Code, err)
			}
		})
	}
	h1, _ := st.GetShipmentByTracking(context.Background(), "H1")
	if h1.AssignedDriverID != nil || h1.Status != model.StatusPacked {
		t.Fatalf("rejected batch must not be written: %+v", h1)
	}
	d, _ := st.GetDriver(context.Background(), "d1")
	if d.CurrentLoad != 0 {
		t.Fatalf("driver load changed to %f", d.CurrentLoad)
	}
}

func TestAssignBatch_CommitsAll(t *testing.T) {
	st := store.NewMemoryStore()
	bus := eventbus.New()
	sub := bus.Subscribe()
	t.Cleanup(bus.Close)
	mgr := newTestManager(t, st, nil, bus)
	seed(t, st,
		[]model.Driver{{ID: "d1", Zone: "Z1", Capacity: 50, Available: true}},
		batchShipment("A", "b1", 20), batchShipment("B", "b1", 20),
	)
	if err := mgr.AssignBatch(context.Background(), "b1", "d1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	manifest, err := mgr.Manifest(context.Background(), "d1")
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(manifest) != 2 {
		t.Fatalf("expected 2 manifest entries, got %d", len(manifest))
	}
	for _, r := range manifest {
		if r.Method != model.MethodBatchAssign || r.Status != model.StatusDispatched {
			t.Fatalf("unexpected record %+v", r)
		}
	}
	ev := (<-sub).(events.DispatchAssigned)
	if ev.Method != model.MethodBatchAssign {
		t.Fatalf("unexpected method %s", ev.Method)
	}
	if _, err := mgr.Manifest(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunAutoAssignment_InvariantsAcrossPasses(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	for seedNo := uint64(1); seedNo <= 25; seedNo++ {
		t.Run(fmt.Sprintf("seed-%d", seedNo), func(t *testing.T) {
			r := rand.New(rand.NewPCG(seedNo, seedNo*104729))
			st := store.NewMemoryStore()
			mgr := newTestManager(t, st, nil, nil)
			fleet := append(randomFleet(r, "Z1", 1+r.IntN(4)), randomFleet(r, "Z2", 1+r.IntN(4))...)
			for i := range fleet {
				fleet[i].CurrentLoad = min(fleet[i].CurrentLoad, fleet[i].Capacity)
			}
			seed(t, st, fleet)
			initial := make(map[string]model.Driver, len(fleet))
			for _, d := range fleet {
				initial[d.ID] = d
			}

			for pass := 0; pass < 4; pass++ {
				for _, zone := range []string{"Z1", "Z2"} {
					batch := randomShipments(r, zone, r.IntN(15), testNow)
					for _, s := range batch {
						s.ID = fmt.Sprintf("p%d-%s", pass, s.ID)
						s.TrackingID = fmt.Sprintf("p%d-%s", pass, s.TrackingID)
					}
					seed(t, st, nil, batch...)
				}
				res, err := mgr.RunAutoAssignment(ctx)
				if err != nil && !IsNothingToDo(err) {
					t.Fatalf("pass %d: %v", pass, err)
				}
				for id, tracking := range res.Assignments {
					d := initial[id]
					minutes := cfg.EstimateMinutes(len(tracking))
					if d.CumulativeDrivingMinutes+minutes > regulation.DailyLimitMinutes-regulation.BufferMinutes ||
						d.ContinuousDrivingMinutes+minutes > regulation.ContinuousLimitMinutes-regulation.BufferMinutes {
						t.Fatalf("pass %d: driver %s given %d stops beyond its driving ceiling", pass, id, len(tracking))
					}
				}
				for _, d := range fleet {
					got, err := st.GetDriver(ctx, d.ID)
					if err != nil {
						t.Fatalf("get driver: %v", err)
					}
					if got.CurrentLoad > got.Capacity+1e-9 || got.CurrentVolume > got.EffectiveVolumeCapacity()+1e-9 {
						t.Fatalf("pass %d: driver %s at %f/%f of %f/%f", pass, d.ID,
							got.CurrentLoad, got.CurrentVolume, got.Capacity, got.EffectiveVolumeCapacity())
					}
				}
			}
		})
	}
}
