package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/sla"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// NewShipment describes a shipment to create.
type NewShipment struct {
	TrackingID     string            `json:"tracking_id"`
	SKU            string            `json:"sku"`
	Quantity       int               `json:"quantity"`
	Direction      model.Direction   `json:"direction"`
	Priority       model.Priority    `json:"priority"`
	Zone           string            `json:"zone"`
	WarehouseCode  string            `json:"warehouse_code"`
	Weight         float64           `json:"weight"`
	Volume         float64           `json:"volume"`
	SLATier        model.SLATier     `json:"sla_tier"`
	BatchID        string            `json:"batch_id,omitempty"`
	DeliveryWindow *model.TimeWindow `json:"delivery_window,omitempty"`
	Actor          string            `json:"actor,omitempty"`
}

//gocyclo:ignore
func (n *NewShipment) validate() error {
	n.TrackingID = strings.TrimSpace(n.TrackingID)
	n.SKU = strings.TrimSpace(n.SKU)
	n.Zone = strings.TrimSpace(n.Zone)
	switch {
	case n.TrackingID == "":
		return apperr.New(apperr.ErrValidation, "tracking_id is required")
	case n.SKU == "":
		return apperr.New(apperr.ErrValidation, "sku is required")
	case n.Quantity <= 0:
		return apperr.New(apperr.ErrValidation, "quantity must be positive")
	case n.Zone == "":
		return apperr.New(apperr.ErrValidation, "zone is required")
	case n.Weight < 0 || n.Volume < 0:
		return apperr.New(apperr.ErrValidation, "weight and volume must not be negative")
	case !n.Direction.Valid():
		return apperr.New(apperr.ErrValidation, "unknown direction %q", n.Direction)
	case n.Priority.Rank() > int(model.PriorityBulk):
		return apperr.New(apperr.ErrValidation, "priority is required")
	case n.SLATier != "" && n.SLATier.Normalize() != n.SLATier:
		return apperr.New(apperr.ErrValidation, "unknown sla tier %q", n.SLATier)
	case n.DeliveryWindow != nil && n.DeliveryWindow.End.Before(n.DeliveryWindow.Start):
		return apperr.New(apperr.ErrValidation, "delivery window ends before it starts")
	}
	return nil
}

// CreateShipment validates and persists a shipment. Outbound shipments go
// through ReserveOrPreempt and start PACKED or, when backordered, PENDING.
// Inbound shipments start PENDING until received.
func (e *Engine) CreateShipment(ctx context.Context, in NewShipment) (*model.Shipment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := e.store.GetShipmentByTracking(ctx, in.TrackingID); err == nil {
		return nil, apperr.New(apperr.ErrDuplicateShipment, "tracking id %s already exists", in.TrackingID)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("lookup tracking id: %w", err)
	}

	now := e.clock()
	s := &model.Shipment{
		ID:             uuid.NewString(),
		TrackingID:     in.TrackingID,
		SKU:            in.SKU,
		Quantity:       in.Quantity,
		Direction:      in.Direction,
		Priority:       in.Priority,
		Zone:           in.Zone,
		WarehouseCode:  e.warehouse(in.WarehouseCode),
		Weight:         in.Weight,
		Volume:         in.Volume,
		SLATier:        in.SLATier.Normalize(),
		SLADeadline:    sla.Deadline(now, in.SLATier),
		DeliveryWindow: in.DeliveryWindow,
		CreatedAt:      now,
	}
	if in.BatchID != "" {
		b := in.BatchID
		s.BatchID = &b
	}

	status, note := model.StatusPending, "awaiting receipt"
	var preempted []string
	if s.Direction == model.DirectionOutbound {
		d, err := e.ReserveOrPreempt(ctx, ReservationRequest{
			SKU: s.SKU, Warehouse: s.WarehouseCode, Quantity: s.Quantity,
			Priority: s.Priority, TrackingID: s.TrackingID,
		})
		if err != nil {
			return nil, err
		}
		status, s.Reserved, preempted = d.Status, d.Reserved, d.Preempted
		if d.Status == model.StatusPending {
			note = "backordered"
		} else {
			note = fmt.Sprintf("reserved %d", d.Reserved)
		}
	}
	s.AppendStatus(status, now, in.Actor, note)

	if err := e.store.CreateShipment(ctx, s); err != nil {
		return nil, e.abandon(ctx, s, preempted, err)
	}
	e.log.Debugf("shipment %s created as %s", s.TrackingID, s.Status)
	e.publish(events.ShipmentCreated{
		ShipmentID: s.ID, TrackingID: s.TrackingID, Direction: s.Direction, Status: s.Status, At: now,
	})
	return s, nil
}

// abandon undoes the reservation of a shipment that could not be saved and
// returns the stock of any order demoted for it to the pending queue.
func (e *Engine) abandon(ctx context.Context, s *model.Shipment, preempted []string, cause error) error {
	errs := []error{cause}
	if s.Reserved > 0 {
		if err := e.store.Release(ctx, s.SKU, s.WarehouseCode, s.Reserved); err != nil {
			errs = append(errs, fmt.Errorf("release reservation of unsaved shipment %s: %w", s.TrackingID, err))
		}
	}
	if err := e.handBack(ctx, s.SKU, s.WarehouseCode, preempted); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 1 {
		return cause
	}
	monitoring.CaptureException(errors.Join(errs[1:]...), map[string]string{"component": "inventory", "shipment": s.TrackingID})
	return errors.Join(errs...)
}

// ReceiveInbound records the count of a PENDING inbound shipment. A matching
// count credits stock and runs the fulfillment sweep; any other count opens
// a dispute without crediting stock.
func (e *Engine) ReceiveInbound(ctx context.Context, shipmentID string, counted int, actor string) (*model.Shipment, error) {
	if counted < 0 {
		return nil, apperr.New(apperr.ErrValidation, "counted quantity must not be negative")
	}
	s, err := e.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if s.Direction != model.DirectionInbound {
		return nil, apperr.New(apperr.ErrValidation, "shipment %s is not inbound", s.TrackingID)
	}
	if s.Status == model.StatusDisputed {
		return nil, apperr.New(apperr.ErrDisputeActive, "shipment %s already has an open dispute", s.TrackingID)
	}
	if s.Status != model.StatusPending {
		return nil, apperr.New(apperr.ErrInvalidTransition, "shipment %s is %s", s.TrackingID, s.Status)
	}

	now := e.clock()
	if counted != s.Quantity {
		updated, err := e.store.TransitionShipment(ctx, store.Transition{
			ShipmentID: s.ID,
			From:       []model.Status{model.StatusPending},
			To:         model.StatusDisputed,
			At:         now,
			Actor:      actor,
			Note:       fmt.Sprintf("counted %d, expected %d", counted, s.Quantity),
			Received:   &counted,
		})
		if err != nil {
			return nil, err
		}
		e.log.Warnf("inbound %s disputed: counted %d, expected %d", s.TrackingID, counted, s.Quantity)
		return updated, nil
	}
	return e.credit(ctx, s, model.StatusPending, counted, actor)
}

// ResolveDispute closes a dispute. Accepting credits the counted quantity;
// rejecting returns the shipment.
func (e *Engine) ResolveDispute(ctx context.Context, shipmentID string, accept bool, actor string) (*model.Shipment, error) {
	s, err := e.store.GetShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusDisputed {
		return nil, apperr.New(apperr.ErrInvalidTransition, "shipment %s has no open dispute", s.TrackingID)
	}
	if !accept {
		return e.store.TransitionShipment(ctx, store.Transition{
			ShipmentID: s.ID,
			From:       []model.Status{model.StatusDisputed},
			To:         model.StatusReturned,
			At:         e.clock(),
			Actor:      actor,
			Note:       "dispute rejected",
		})
	}
	counted := s.Quantity
	if s.ReceivedQuantity != nil {
		counted = *s.ReceivedQuantity
	}
	return e.credit(ctx, s, model.StatusDisputed, counted, actor)
}

func (e *Engine) credit(ctx context.Context, s *model.Shipment, from model.Status, qty int, actor string) (*model.Shipment, error) {
	updated, err := e.store.TransitionShipment(ctx, store.Transition{
		ShipmentID: s.ID,
		From:       []model.Status{from},
		To:         model.StatusReceived,
		At:         e.clock(),
		Actor:      actor,
		Note:       fmt.Sprintf("received %d", qty),
		Received:   &qty,
	})
	if err != nil {
		return nil, err
	}
	wh := e.warehouse(s.WarehouseCode)
	if qty > 0 {
		if err := e.store.Receive(ctx, s.SKU, wh, qty); err != nil {
			return nil, fmt.Errorf("credit %d %s@%s: %w", qty, s.SKU, wh, err)
		}
	}
	if _, err := e.FulfillPending(ctx, s.SKU, wh); err != nil {
		e.log.Errorf("fulfillment sweep for %s@%s: %v", s.SKU, wh, err)
		monitoring.CaptureException(err, map[string]string{"component": "inventory", "sku": s.SKU})
	}
	return updated, nil
}
