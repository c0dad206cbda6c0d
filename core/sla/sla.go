// Package sla computes service-level deadlines and escalates shipments that
// miss them.
package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// Config defines the sweep schedule.
type Config struct {
	Schedule string `json:"schedule"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 5m"
	}
}

// Deadline returns createdAt plus the tier offset. Unknown tiers use BRONZE.
func Deadline(createdAt time.Time, tier model.SLATier) time.Time {
	return createdAt.Add(tier.Normalize().Offset())
}

// Sweeper flags non-terminal shipments past their deadline.
type Sweeper struct {
	store   store.ShipmentStore
	bus     eventbus.EventBus
	log     logger.Logger
	metrics metrics.MetricsSink
	clock   func() time.Time
}

// NewSweeper creates a Sweeper. bus, sink and log may be nil; a nil clock
// uses time.Now.
func NewSweeper(st store.ShipmentStore, bus eventbus.EventBus, sink metrics.MetricsSink, log logger.Logger, clock func() time.Time) (*Sweeper, error) {
	if st == nil {
		return nil, fmt.Errorf("sla: nil store")
	}
	if log == nil {
		log = logger.Nop{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Sweeper{store: st, bus: bus, log: log, metrics: sink, clock: clock}, nil
}

// Sweep escalates every overdue shipment once and returns how many were
// flagged by this run. Failures on one shipment are logged and reported
// without stopping the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock()
	overdue, err := s.store.ListShipments(ctx, store.ShipmentFilter{
		Statuses:       model.NonTerminalStatuses(),
		NotEscalated:   true,
		DeadlineBefore: now,
	})
	if err != nil {
		return 0, fmt.Errorf("list overdue shipments: %w", err)
	}
	rec, _ := s.metrics.(metrics.EscalationRecorder)
	count := 0
	for _, sh := range overdue {
		changed, err := s.store.MarkEscalated(ctx, sh.ID, now)
		if err != nil {
			s.log.Errorf("escalate shipment %s: %v", sh.TrackingID, err)
			monitoring.CaptureException(err, map[string]string{"component": "sla", "shipment": sh.TrackingID})
			continue
		}
		if !changed {
			continue
		}
		count++
		if s.bus != nil {
			s.bus.Publish(events.SLAEscalated{
				ShipmentID: sh.ID,
				TrackingID: sh.TrackingID,
				Tier:       sh.SLATier.Normalize(),
				Deadline:   sh.SLADeadline,
				At:         now,
			})
		}
		if rec != nil {
			var driverID string
			if sh.AssignedDriverID != nil {
				driverID = *sh.AssignedDriverID
			}
			if err := rec.RecordEscalation(metrics.EscalationEvent{
				ShipmentID: sh.ID,
				TrackingID: sh.TrackingID,
				DriverID:   driverID,
				Tier:       string(sh.SLATier.Normalize()),
				Overdue:    now.Sub(sh.SLADeadline),
				Time:       now,
			}); err != nil {
				s.log.Errorf("escalation metrics error: %v", err)
			}
		}
	}
	if count > 0 {
		s.log.Infof("escalated %d shipments past their SLA deadline", count)
	}
	return count, nil
}

// Job adapts Sweep to a scheduler job.
func (s *Sweeper) Job(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
