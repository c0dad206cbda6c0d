package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// ReservationRequest asks for stock on behalf of a new outbound order.
type ReservationRequest struct {
	SKU        string
	Warehouse  string
	Quantity   int
	Priority   model.Priority
	TrackingID string
}

// Decision is the outcome of a reservation request.
type Decision struct {
	// Status is PACKED when the quantity is reserved and PENDING on backorder.
	Status   model.Status `json:"status"`
	Reserved int          `json:"reserved"`
	// Preempted lists the tracking ids demoted to free stock.
	Preempted []string `json:"preempted,omitempty"`
}

// ReserveOrPreempt reserves the requested quantity, demoting PACKED orders
// of strictly lower priority when stock is short. When even every such order
// would not cover the request, nothing is demoted and the decision is a
// backorder. A victim whose status changed concurrently is skipped and the
// request is re-evaluated.
//
// Stock freed from victims goes to the requester or, when the call ends
// without a reservation, back to the pending queue through FulfillPending.
func (e *Engine) ReserveOrPreempt(ctx context.Context, req ReservationRequest) (Decision, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	if req.SKU == "" {
		return Decision{}, apperr.New(apperr.ErrValidation, "sku is required")
	}
	if req.Quantity <= 0 {
		return Decision{}, apperr.New(apperr.ErrValidation, "quantity must be positive, got %d", req.Quantity)
	}
	if req.Priority.Rank() > int(model.PriorityBulk) {
		return Decision{}, apperr.New(apperr.ErrValidation, "unknown priority %d", req.Priority)
	}
	req.Warehouse = e.warehouse(req.Warehouse)
	d, err := e.reserve(ctx, req)
	if err != nil || d.Status != model.StatusPacked {
		if herr := e.handBack(ctx, req.SKU, req.Warehouse, d.Preempted); herr != nil {
			err = errors.Join(err, herr)
		}
	}
	return d, err
}

// handBack runs the fulfillment sweep after victims were demoted for a
// request that did not keep the stock.
func (e *Engine) handBack(ctx context.Context, sku, warehouse string, preempted []string) error {
	if len(preempted) == 0 {
		return nil
	}
	n, err := e.FulfillPending(ctx, sku, warehouse)
	if err != nil {
		return fmt.Errorf("hand back stock preempted from %v: %w", preempted, err)
	}
	e.log.Infof("handed %s@%s back to %d pending shipments after preempting %v", sku, warehouse, n, preempted)
	return nil
}

//gocyclo:ignore
func (e *Engine) reserve(ctx context.Context, req ReservationRequest) (Decision, error) {
	unlock := e.locks.lock(req.SKU, req.Warehouse)
	defer unlock()

	var preempted []string
	available := 0
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		var err error
		available, err = e.available(ctx, req.SKU, req.Warehouse)
		if err != nil {
			return Decision{Preempted: preempted}, err
		}
		if available < req.Quantity {
			victims, err := e.selectVictims(ctx, req, available)
			if err != nil {
				return Decision{Preempted: preempted}, err
			}
			if victims == nil {
				break
			}
			demoted, raced, err := e.preempt(ctx, req, victims)
			preempted = append(preempted, demoted...)
			if err != nil {
				return Decision{Preempted: preempted}, err
			}
			if raced {
				continue
			}
		}
		err = e.store.Reserve(ctx, req.SKU, req.Warehouse, req.Quantity)
		if errors.Is(err, apperr.ErrInsufficientStock) {
			e.log.Debugf("reservation for %s lost a race on %s@%s, retrying", req.TrackingID, req.SKU, req.Warehouse)
			continue
		}
		if err != nil {
			return Decision{Preempted: preempted}, fmt.Errorf("reserve %s@%s: %w", req.SKU, req.Warehouse, err)
		}
		outcome := metrics.OutcomeReserved
		if len(preempted) > 0 {
			outcome = metrics.OutcomePreempted
		}
		e.recordReservation(metrics.ReservationEvent{
			TrackingID: req.TrackingID, SKU: req.SKU, Warehouse: req.Warehouse,
			Outcome: outcome, Quantity: req.Quantity, Victims: len(preempted), Time: e.clock(),
		})
		return Decision{Status: model.StatusPacked, Reserved: req.Quantity, Preempted: preempted}, nil
	}

	e.log.Debugw("backordered", map[string]any{
		"tracking_id": req.TrackingID,
		"sku":         req.SKU,
		"warehouse":   req.Warehouse,
		"requested":   req.Quantity,
		"available":   available,
	})
	now := e.clock()
	e.publish(events.ShipmentBackordered{
		TrackingID: req.TrackingID, SKU: req.SKU, Warehouse: req.Warehouse,
		Requested: req.Quantity, Available: available, At: now,
	})
	e.recordReservation(metrics.ReservationEvent{
		TrackingID: req.TrackingID, SKU: req.SKU, Warehouse: req.Warehouse,
		Outcome: metrics.OutcomeBackordered, Quantity: req.Quantity, Victims: len(preempted), Time: now,
	})
	return Decision{Status: model.StatusPending, Preempted: preempted}, nil
}

func (e *Engine) available(ctx context.Context, sku, warehouse string) (int, error) {
	rec, err := e.store.GetInventory(ctx, sku, warehouse)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get inventory %s@%s: %w", sku, warehouse, err)
	}
	return rec.Available(), nil
}

// selectVictims returns the PACKED orders to demote, worst priority first
// then most recent first, or nil when they cannot cover the request.
func (e *Engine) selectVictims(ctx context.Context, req ReservationRequest, available int) ([]*model.Shipment, error) {
	packed, err := e.store.ListShipments(ctx, store.ShipmentFilter{
		Direction: model.DirectionOutbound,
		Statuses:  []model.Status{model.StatusPacked},
		SKU:       req.SKU,
		Warehouse: req.Warehouse,
	})
	if err != nil {
		return nil, fmt.Errorf("list preemption candidates: %w", err)
	}
	var candidates []*model.Shipment
	for _, s := range packed {
		if s.Reserved > 0 && s.TrackingID != req.TrackingID && req.Priority.Outranks(s.Priority) {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.TrackingID > b.TrackingID
	})
	covered := available
	for i, c := range candidates {
		covered += c.Reserved
		if covered >= req.Quantity {
			return candidates[:i+1], nil
		}
	}
	return nil, nil
}

// preempt demotes the victims and releases their whole reservation. It
// reports whether any victim changed status underneath it.
func (e *Engine) preempt(ctx context.Context, req ReservationRequest, victims []*model.Shipment) ([]string, bool, error) {
	var demoted []string
	raced := false
	zero := 0
	for _, v := range victims {
		now := e.clock()
		_, err := e.store.TransitionShipment(ctx, store.Transition{
			ShipmentID: v.ID,
			From:       []model.Status{model.StatusPacked},
			To:         model.StatusPending,
			At:         now,
			Actor:      "reservation",
			Note:       "preempted by " + req.TrackingID,
			Reserved:   &zero,
		})
		if errors.Is(err, apperr.ErrConcurrentUpdate) {
			e.log.Debugf("preemption victim %s changed concurrently, skipping", v.TrackingID)
			raced = true
			continue
		}
		if err != nil {
			return demoted, raced, fmt.Errorf("demote %s: %w", v.TrackingID, err)
		}
		demoted = append(demoted, v.TrackingID)
		if err := e.store.Release(ctx, req.SKU, req.Warehouse, v.Reserved); err != nil {
			return demoted, raced, fmt.Errorf("release %d %s@%s held by demoted %s: %w", v.Reserved, req.SKU, req.Warehouse, v.TrackingID, err)
		}
		e.log.Infof("shipment %s preempted by %s (%d %s released)", v.TrackingID, req.TrackingID, v.Reserved, req.SKU)
		e.publish(events.ShipmentPreempted{
			ShipmentID: v.ID, TrackingID: v.TrackingID, PreemptedBy: req.TrackingID,
			SKU: req.SKU, Warehouse: req.Warehouse, Released: v.Reserved, At: now,
		})
	}
	return demoted, raced, nil
}
