// Package delivery moves dispatched shipments through transit to a terminal
// state, returning capacity to drivers and consuming reserved stock.
package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// LocationUpdate is streamed for every recorded position.
type LocationUpdate struct {
	ShipmentID string
	TrackingID string
	DriverID   string
	Location   model.LocationEntry
}

// Service handles delivery lifecycle transitions.
type Service struct {
	store     store.Store
	bus       eventbus.EventBus
	log       logger.Logger
	metrics   metrics.MetricsSink
	locations *eventbus.TypedBus[LocationUpdate]
	clock     func() time.Time
}

// NewService creates a Service. bus, sink and log may be nil.
func NewService(st store.Store, bus eventbus.EventBus, sink metrics.MetricsSink, log logger.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("delivery: nil store")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		store:     st,
		bus:       bus,
		log:       log,
		metrics:   sink,
		locations: eventbus.NewTyped[LocationUpdate](),
		clock:     time.Now,
	}, nil
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.clock = now
	}
}

// Locations returns the live location feed.
func (s *Service) Locations() *eventbus.TypedBus[LocationUpdate] { return s.locations }

// Close stops the location feed.
func (s *Service) Close() { s.locations.Close() }

func (s *Service) transition(ctx context.Context, id string, to model.Status, actor, note string, reserved *int) (*model.Shipment, *model.Shipment, error) {
	cur, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !model.CanTransition(cur.Status, to) {
		return nil, nil, apperr.New(apperr.ErrInvalidTransition, "shipment %s cannot move from %s to %s", cur.TrackingID, cur.Status, to)
	}
	now := s.clock()
	updated, err := s.store.TransitionShipment(ctx, store.Transition{
		ShipmentID: id,
		From:       []model.Status{cur.Status},
		To:         to,
		At:         now,
		Actor:      actor,
		Note:       note,
		Reserved:   reserved,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.UpdateDispatchStatus(ctx, id, to, now); err != nil {
		s.log.Warnf("dispatch record of %s not updated: %v", cur.TrackingID, err)
	}
	return cur, updated, nil
}

// StartTransit moves a DISPATCHED shipment to IN_TRANSIT and consumes its
// reserved stock.
func (s *Service) StartTransit(ctx context.Context, id, actor string) (*model.Shipment, error) {
	zero := 0
	cur, updated, err := s.transition(ctx, id, model.StatusInTransit, actor, "", &zero)
	if err != nil {
		return nil, err
	}
	if cur.Reserved > 0 {
		if err := s.store.Consume(ctx, cur.SKU, cur.WarehouseCode, cur.Reserved); err != nil {
			s.log.Errorf("consume %d %s@%s for %s: %v", cur.Reserved, cur.SKU, cur.WarehouseCode, cur.TrackingID, err)
			monitoring.CaptureException(err, map[string]string{"component": "delivery", "shipment": cur.TrackingID})
		}
	}
	return updated, nil
}

// OutForDelivery moves an IN_TRANSIT shipment to OUT_FOR_DELIVERY.
func (s *Service) OutForDelivery(ctx context.Context, id, actor string) (*model.Shipment, error) {
	_, updated, err := s.transition(ctx, id, model.StatusOutForDelivery, actor, "", nil)
	return updated, err
}

// Complete marks a shipment DELIVERED and frees its driver's capacity.
func (s *Service) Complete(ctx context.Context, id, actor string) (*model.Shipment, error) {
	_, updated, err := s.transition(ctx, id, model.StatusDelivered, actor, "", nil)
	if err != nil {
		return nil, err
	}
	driverID := s.unload(ctx, updated)
	now := updated.UpdatedAt
	if s.bus != nil {
		s.bus.Publish(events.DeliveryCompleted{
			ShipmentID: updated.ID, TrackingID: updated.TrackingID, DriverID: driverID,
			Weight: updated.Weight, Volume: updated.Volume, At: now,
		})
	}
	s.record(updated, driverID, metrics.DeliveryDelivered, now)
	return updated, nil
}

// ReportException returns a shipment that could not be delivered.
func (s *Service) ReportException(ctx context.Context, id, reason, actor string) (*model.Shipment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.New(apperr.ErrValidation, "reason is required")
	}
	_, updated, err := s.transition(ctx, id, model.StatusReturned, actor, reason, nil)
	if err != nil {
		return nil, err
	}
	driverID := s.unload(ctx, updated)
	now := updated.UpdatedAt
	if s.bus != nil {
		s.bus.Publish(events.DeliveryException{
			ShipmentID: updated.ID, TrackingID: updated.TrackingID, DriverID: driverID, Reason: reason, At: now,
		})
	}
	s.record(updated, driverID, metrics.DeliveryReturned, now)
	return updated, nil
}

// LocationInput is a position report. Accuracy is optional.
type LocationInput struct {
	Lat      float64    `json:"lat"`
	Lng      float64    `json:"lng"`
	Accuracy *float64   `json:"accuracy,omitempty"`
	At       *time.Time `json:"at,omitempty"`
}

// RecordLocation appends a position to a shipment that is still moving.
func (s *Service) RecordLocation(ctx context.Context, id string, in LocationInput) error {
	if in.Lat < -90 || in.Lat > 90 || in.Lng < -180 || in.Lng > 180 {
		return apperr.New(apperr.ErrValidation, "coordinates out of range: %f,%f", in.Lat, in.Lng)
	}
	if in.Accuracy != nil && *in.Accuracy < 0 {
		return apperr.New(apperr.ErrValidation, "accuracy must not be negative")
	}
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return err
	}
	if sh.Status.Terminal() {
		return apperr.New(apperr.ErrInvalidTransition, "shipment %s is %s", sh.TrackingID, sh.Status)
	}
	loc := model.LocationEntry{Lat: in.Lat, Lng: in.Lng, Accuracy: in.Accuracy, At: s.clock()}
	if in.At != nil {
		loc.At = *in.At
	}
	if err := s.store.AppendLocation(ctx, id, loc); err != nil {
		return err
	}
	upd := LocationUpdate{ShipmentID: sh.ID, TrackingID: sh.TrackingID, Location: loc}
	if sh.AssignedDriverID != nil {
		upd.DriverID = *sh.AssignedDriverID
	}
	s.locations.Publish(upd)
	return nil
}

func (s *Service) unload(ctx context.Context, sh *model.Shipment) string {
	if sh.AssignedDriverID == nil {
		return ""
	}
	driverID := *sh.AssignedDriverID
	if err := s.store.AdjustDriverLoad(ctx, driverID, -sh.Weight, -sh.Volume); err != nil {
		s.log.Errorf("release load of driver %s for %s: %v", driverID, sh.TrackingID, err)
		monitoring.CaptureException(err, map[string]string{"component": "delivery", "driver": driverID})
	}
	return driverID
}

func (s *Service) record(sh *model.Shipment, driverID, outcome string, at time.Time) {
	rec, ok := s.metrics.(metrics.DeliveryRecorder)
	if !ok {
		return
	}
	if err := rec.RecordDelivery(metrics.DeliveryEvent{
		ShipmentID: sh.ID, DriverID: driverID, Outcome: outcome, Weight: sh.Weight, Time: at,
	}); err != nil {
		s.log.Errorf("delivery metrics error: %v", err)
	}
}
