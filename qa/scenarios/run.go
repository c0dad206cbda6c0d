package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/inventory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/scheduler"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/sla"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

type harness struct {
	store     *store.MemoryStore
	clock     *scheduler.ManualClock
	dispatch  *dispatch.Manager
	inventory *inventory.Engine
	sweeper   *sla.Sweeper
	lastScore float64
}

func newHarness(t *testing.T, sc *Scenario) *harness {
	t.Helper()
	sink, err := metrics.NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	h := &harness{store: store.NewMemoryStore(), clock: scheduler.NewManualClock(sc.Now)}

	var cfg dispatch.Config
	h.dispatch, err = dispatch.NewManager(h.store, cfg, sink, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	h.dispatch.SetClock(h.clock.Now)
	h.inventory, err = inventory.NewEngine(h.store, inventory.Config{}, sink, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	h.inventory.SetClock(h.clock.Now)
	h.sweeper, err = sla.NewSweeper(h.store, bus, sink, logger.NopLogger{}, h.clock.Now)
	if err != nil {
		t.Fatalf("sweeper: %v", err)
	}

	ctx := context.Background()
	for _, d := range sc.Drivers {
		if err := h.store.SaveDriver(ctx, d.ToModel()); err != nil {
			t.Fatalf("driver %s: %v", d.ID, err)
		}
	}
	for _, s := range sc.Stock {
		if err := h.store.Receive(ctx, s.SKU, warehouseOf(s.Warehouse), s.OnHand); err != nil {
			t.Fatalf("stock %s: %v", s.SKU, err)
		}
	}
	return h
}

func warehouseOf(code string) string {
	if code == "" {
		return "MAIN"
	}
	return code
}

func (h *harness) step(ctx context.Context, st Step) error {
	switch {
	case st.Create != nil:
		req, err := st.Create.ToRequest(h.clock.Now())
		if err != nil {
			return apperr.Wrap(apperr.ErrValidation, err, "scenario shipment %s", st.Create.TrackingID)
		}
		_, err = h.inventory.CreateShipment(ctx, req)
		return err
	case st.AutoAssign:
		res, err := h.dispatch.RunAutoAssignment(ctx)
		if err == nil {
			h.lastScore = res.Score
		}
		return err
	case st.AssignBatch != nil:
		return h.dispatch.AssignBatch(ctx, st.AssignBatch.Batch, st.AssignBatch.Driver)
	case st.Receive != nil:
		sh, err := h.store.GetShipmentByTracking(ctx, st.Receive.TrackingID)
		if err != nil {
			return err
		}
		_, err = h.inventory.ReceiveInbound(ctx, sh.ID, st.Receive.Counted, "scenario")
		return err
	case st.Stock != nil:
		wh := warehouseOf(st.Stock.Warehouse)
		if err := h.store.Receive(ctx, st.Stock.SKU, wh, st.Stock.OnHand); err != nil {
			return err
		}
		_, err := h.inventory.FulfillPending(ctx, st.Stock.SKU, wh)
		return err
	case st.Advance != "":
		d, err := time.ParseDuration(st.Advance)
		if err != nil {
			return apperr.Wrap(apperr.ErrValidation, err, "advance")
		}
		h.clock.Advance(d)
		return nil
	case st.Sweep:
		_, err := h.sweeper.Sweep(ctx)
		return err
	}
	return apperr.New(apperr.ErrValidation, "empty step")
}

// RunScenario replays sc and checks its expectations.
//
//gocyclo:ignore
func RunScenario(t *testing.T, sc *Scenario) {
	ctx := context.Background()
	h := newHarness(t, sc)

	for i, st := range sc.Steps {
		err := h.step(ctx, st)
		switch {
		case st.Error == "" && err != nil:
			t.Fatalf("step %d: unexpected error: %v", i, err)
		case st.Error != "" && apperr.CodeOf(err) != st.Error:
			t.Fatalf("step %d: expected error %s, got %v", i, st.Error, err)
		}
	}

	for tracking, want := range sc.Expected.Statuses {
		sh, err := h.store.GetShipmentByTracking(ctx, tracking)
		if err != nil {
			t.Fatalf("shipment %s: %v", tracking, err)
		}
		if string(sh.Status) != want {
			t.Errorf("shipment %s: expected %s, got %s", tracking, want, sh.Status)
		}
	}
	for tracking, want := range sc.Expected.Drivers {
		sh, err := h.store.GetShipmentByTracking(ctx, tracking)
		if err != nil {
			t.Fatalf("shipment %s: %v", tracking, err)
		}
		got := ""
		if sh.AssignedDriverID != nil {
			got = *sh.AssignedDriverID
		}
		if got != want {
			t.Errorf("shipment %s: expected driver %q, got %q", tracking, want, got)
		}
	}
	for key, want := range sc.Expected.Inventory {
		sku, wh := splitKey(key)
		rec, err := h.store.GetInventory(ctx, sku, wh)
		if err != nil {
			t.Fatalf("inventory %s: %v", key, err)
		}
		if rec.OnHand != want.OnHand || rec.Reserved != want.Reserved {
			t.Errorf("inventory %s: expected %d/%d, got %d/%d", key, want.OnHand, want.Reserved, rec.OnHand, rec.Reserved)
		}
	}
	for _, tracking := range sc.Expected.Escalated {
		sh, err := h.store.GetShipmentByTracking(ctx, tracking)
		if err != nil {
			t.Fatalf("shipment %s: %v", tracking, err)
		}
		if !sh.Escalated {
			t.Errorf("shipment %s: expected escalation", tracking)
		}
	}
	if h.lastScore < sc.Expected.MinScore {
		t.Errorf("score %.0f below %.0f", h.lastScore, sc.Expected.MinScore)
	}
}

func splitKey(key string) (string, string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '@' {
			return key[:i], key[i+1:]
		}
	}
	return key, "MAIN"
}
