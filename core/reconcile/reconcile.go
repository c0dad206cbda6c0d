// Package reconcile detects SKUs whose warehouses together promise more stock
// than they hold and settles competing orders for them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// Config defines the periodic detection schedule. An empty schedule disables it.
type Config struct {
	Schedule string `json:"schedule"`
}

// Conflict describes an over-reserved SKU.
type Conflict struct {
	SKU           string   `json:"sku"`
	Warehouses    []string `json:"warehouses"`
	TotalOnHand   int      `json:"total_on_hand"`
	TotalReserved int      `json:"total_reserved"`
}

// Request names two orders competing for the same SKU in two warehouses.
type Request struct {
	SKU         string `json:"sku"`
	WarehouseA  string `json:"warehouse_a"`
	WarehouseB  string `json:"warehouse_b"`
	OrderA      string `json:"order_a"`
	OrderB      string `json:"order_b"`
	// QtyPerOrder is released for a loser without a recorded reservation.
	QtyPerOrder int    `json:"qty_per_order"`
}

// Result is the outcome of a resolution.
type Result struct {
	Winner  string `json:"winner"`
	Loser   string `json:"loser"`
	Message string `json:"message"`
	Demoted bool   `json:"demoted"`
}

// Reconciler detects and resolves split-brain inventory.
type Reconciler struct {
	store   store.Store
	bus     eventbus.EventBus
	log     logger.Logger
	metrics metrics.MetricsSink
	clock   func() time.Time
}

// NewReconciler creates a Reconciler. bus, sink and log may be nil.
func NewReconciler(st store.Store, bus eventbus.EventBus, sink metrics.MetricsSink, log logger.Logger) (*Reconciler, error) {
	if st == nil {
		return nil, fmt.Errorf("reconcile: nil store")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Reconciler{store: st, bus: bus, log: log, metrics: sink, clock: time.Now}, nil
}

// SetClock overrides the time source.
func (r *Reconciler) SetClock(now func() time.Time) {
	if now != nil {
		r.clock = now
	}
}

// DetectConflicts groups inventory by SKU and returns every SKU whose summed
// reservations exceed summed on-hand stock, flagging its warehouses.
func (r *Reconciler) DetectConflicts(ctx context.Context) ([]Conflict, error) {
	recs, err := r.store.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	bySKU := map[string]*Conflict{}
	var skus []string
	for _, rec := range recs {
		c, ok := bySKU[rec.SKU]
		if !ok {
			c = &Conflict{SKU: rec.SKU}
			bySKU[rec.SKU] = c
			skus = append(skus, rec.SKU)
		}
		c.Warehouses = append(c.Warehouses, rec.WarehouseCode)
		c.TotalOnHand += rec.OnHand
		c.TotalReserved += rec.Reserved
	}
	sort.Strings(skus)

	now := r.clock()
	rec, _ := r.metrics.(metrics.ConflictRecorder)
	var out []Conflict
	for _, sku := range skus {
		c := bySKU[sku]
		if c.TotalReserved <= c.TotalOnHand {
			continue
		}
		for _, wh := range c.Warehouses {
			if err := r.store.SetConflict(ctx, sku, wh, true); err != nil {
				return nil, fmt.Errorf("flag %s@%s: %w", sku, wh, err)
			}
		}
		r.log.Warnf("split-brain on %s: reserved %d exceeds on hand %d across %v", sku, c.TotalReserved, c.TotalOnHand, c.Warehouses)
		if r.bus != nil {
			r.bus.Publish(events.ConflictDetected{
				SKU: sku, Warehouses: append([]string(nil), c.Warehouses...),
				TotalOnHand: c.TotalOnHand, TotalReserved: c.TotalReserved, At: now,
			})
		}
		if rec != nil {
			if err := rec.RecordConflict(metrics.ConflictEvent{
				SKU: sku, TotalOnHand: c.TotalOnHand, TotalReserved: c.TotalReserved, Time: now,
			}); err != nil {
				r.log.Errorf("conflict metrics error: %v", err)
			}
		}
		out = append(out, *c)
	}
	return out, nil
}

// Job adapts DetectConflicts to a scheduler job.
func (r *Reconciler) Job(ctx context.Context) error {
	_, err := r.DetectConflicts(ctx)
	return err
}

// Reconcile settles two competing orders. The loser is demoted to PENDING and
// its reservation at its warehouse released; it is not re-reserved here.
// Running it again once the loser is PENDING changes no shipment and still
// clears the conflict flags.
//
//gocyclo:ignore
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Result, error) {
	if req.SKU == "" || req.OrderA == "" || req.OrderB == "" {
		return Result{}, apperr.New(apperr.ErrValidation, "sku, order_a and order_b are required")
	}
	if req.OrderA == req.OrderB {
		return Result{}, apperr.New(apperr.ErrValidation, "orders must differ")
	}
	if req.QtyPerOrder < 0 {
		return Result{}, apperr.New(apperr.ErrValidation, "qty_per_order must not be negative")
	}
	a, err := r.store.GetShipmentByTracking(ctx, req.OrderA)
	if err != nil {
		return Result{}, err
	}
	b, err := r.store.GetShipmentByTracking(ctx, req.OrderB)
	if err != nil {
		return Result{}, err
	}
	if a.SKU != req.SKU || b.SKU != req.SKU {
		return Result{}, apperr.New(apperr.ErrValidation, "orders %s and %s do not both carry %s", a.TrackingID, b.TrackingID, req.SKU)
	}

	winner, loser := a, b
	loserWarehouse := req.WarehouseB
	if !Wins(a, b) {
		winner, loser = b, a
		loserWarehouse = req.WarehouseA
	}
	if loserWarehouse == "" {
		loserWarehouse = loser.WarehouseCode
	}

	now := r.clock()
	demoted := false
	switch loser.Status {
	case model.StatusPending:
	case model.StatusPacked, model.StatusReceived:
		zero := 0
		_, err := r.store.TransitionShipment(ctx, store.Transition{
			ShipmentID: loser.ID,
			From:       []model.Status{model.StatusPacked, model.StatusReceived},
			To:         model.StatusPending,
			At:         now,
			Actor:      "reconciler",
			Note:       "split-brain resolved in favour of " + winner.TrackingID,
			Reserved:   &zero,
		})
		if err != nil {
			return Result{}, err
		}
		demoted = true
		if err := r.release(ctx, req, loser, loserWarehouse); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, apperr.New(apperr.ErrInvalidTransition, "order %s is %s and cannot be demoted", loser.TrackingID, loser.Status)
	}

	for _, wh := range []string{req.WarehouseA, req.WarehouseB} {
		if wh == "" {
			continue
		}
		if err := r.store.SetConflict(ctx, req.SKU, wh, false); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return Result{}, fmt.Errorf("clear conflict %s@%s: %w", req.SKU, wh, err)
		}
	}

	msg := fmt.Sprintf("order %s keeps %s; order %s returned to PENDING", winner.TrackingID, req.SKU, loser.TrackingID)
	if !demoted {
		msg = fmt.Sprintf("order %s keeps %s; order %s was already PENDING", winner.TrackingID, req.SKU, loser.TrackingID)
	}
	r.log.Infof("%s", msg)
	if r.bus != nil {
		r.bus.Publish(events.ConflictResolved{
			SKU: req.SKU, Winner: winner.TrackingID, Loser: loser.TrackingID, Demoted: demoted, At: now,
		})
	}
	if rec, ok := r.metrics.(metrics.ConflictRecorder); ok {
		if err := rec.RecordConflict(metrics.ConflictEvent{SKU: req.SKU, Resolved: true, Time: now}); err != nil {
			r.log.Errorf("conflict metrics error: %v", err)
		}
	}
	return Result{Winner: winner.TrackingID, Loser: loser.TrackingID, Message: msg, Demoted: demoted}, nil
}

// release frees everything the loser held at its warehouse, since the
// loser's own reservation drops to zero. QtyPerOrder is used only for orders
// that carry no reservation of their own. The amount is capped by the
// warehouse's recorded reservations.
func (r *Reconciler) release(ctx context.Context, req Request, loser *model.Shipment, warehouse string) error {
	qty := loser.Reserved
	if qty == 0 {
		qty = req.QtyPerOrder
	}
	inv, err := r.store.GetInventory(ctx, req.SKU, warehouse)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get inventory %s@%s: %w", req.SKU, warehouse, err)
	}
	if inv.Reserved < qty {
		qty = inv.Reserved
	}
	if qty <= 0 {
		return nil
	}
	if err := r.store.Release(ctx, req.SKU, warehouse, qty); err != nil {
		return fmt.Errorf("release %d %s@%s: %w", qty, req.SKU, warehouse, err)
	}
	return nil
}

// Wins reports whether order a beats order b: EXPRESS beats any other
// priority, otherwise the earlier order wins, then the lower tracking id.
func Wins(a, b *model.Shipment) bool {
	ae, be := a.Priority == model.PriorityExpress, b.Priority == model.PriorityExpress
	if ae != be {
		return ae
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.TrackingID < b.TrackingID
}
