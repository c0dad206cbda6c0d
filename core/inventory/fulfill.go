package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// FulfillPending promotes backordered outbound shipments of the SKU to
// PACKED, in priority then FIFO order, while stock allows. Shipments that do
// not fit are skipped so smaller orders behind them can still be served.
// It returns the number of shipments promoted.
func (e *Engine) FulfillPending(ctx context.Context, sku, warehouse string) (int, error) {
	warehouse = e.warehouse(warehouse)
	unlock := e.locks.lock(sku, warehouse)
	defer unlock()

	pending, err := e.store.ListShipments(ctx, store.ShipmentFilter{
		Direction: model.DirectionOutbound,
		Statuses:  []model.Status{model.StatusPending},
		SKU:       sku,
		Warehouse: warehouse,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending shipments: %w", err)
	}
	promoted := 0
	for _, s := range pending {
		available, err := e.available(ctx, sku, warehouse)
		if err != nil {
			return promoted, err
		}
		if available <= 0 {
			break
		}
		if s.Quantity > available {
			continue
		}
		if err := e.store.Reserve(ctx, sku, warehouse, s.Quantity); err != nil {
			if errors.Is(err, apperr.ErrInsufficientStock) {
				continue
			}
			return promoted, fmt.Errorf("reserve for %s: %w", s.TrackingID, err)
		}
		now := e.clock()
		qty := s.Quantity
		_, err = e.store.TransitionShipment(ctx, store.Transition{
			ShipmentID: s.ID,
			From:       []model.Status{model.StatusPending},
			To:         model.StatusPacked,
			At:         now,
			Actor:      "reservation",
			Note:       fmt.Sprintf("fulfilled %d from stock", qty),
			Reserved:   &qty,
		})
		if err != nil {
			if rerr := e.store.Release(ctx, sku, warehouse, qty); rerr != nil {
				e.log.Errorf("release after failed promotion of %s: %v", s.TrackingID, rerr)
			}
			if errors.Is(err, apperr.ErrConcurrentUpdate) {
				continue
			}
			return promoted, fmt.Errorf("promote %s: %w", s.TrackingID, err)
		}
		promoted++
		e.publish(events.ShipmentFulfilled{
			ShipmentID: s.ID, TrackingID: s.TrackingID, SKU: sku, Warehouse: warehouse, Quantity: qty, At: now,
		})
		e.recordReservation(metrics.ReservationEvent{
			TrackingID: s.TrackingID, SKU: sku, Warehouse: warehouse,
			Outcome: metrics.OutcomeFulfilled, Quantity: qty, Time: now,
		})
	}
	if promoted > 0 {
		e.log.Infof("fulfilled %d backordered shipments of %s@%s", promoted, sku, warehouse)
	}
	return promoted, nil
}
