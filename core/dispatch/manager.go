package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// Manager runs allocation passes against the store.
type Manager struct {
	store   store.Store
	cfg     Config
	logger  logger.Logger
	metrics metrics.MetricsSink
	bus     eventbus.EventBus
	audit   logging.LogStore
	clock   func() time.Time
	// passMu keeps two auto-assign passes from packing the same snapshot.
	passMu sync.Mutex
	mu     sync.Mutex
}

// NewManager creates a Manager. sink, bus and log may be nil.
func NewManager(st store.Store, cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("dispatch: nil store provided to NewManager")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Manager{store: st, cfg: cfg, logger: log, metrics: sink, bus: bus, clock: time.Now}, nil
}

// SetLogStore configures the store used to persist the allocation audit log.
func (m *Manager) SetLogStore(s logging.LogStore) {
	m.mu.Lock()
	m.audit = s
	m.mu.Unlock()
}

// SetClock overrides the time source.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.clock = now
	}
}

// Close releases the audit log.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.audit != nil {
		return m.audit.Close()
	}
	return nil
}

// RunAutoAssignment runs one allocation pass over every dispatchable
// shipment. Shipments that fit no driver are reported, not failed.
//
//gocyclo:ignore
func (m *Manager) RunAutoAssignment(ctx context.Context) (OptimizationResult, error) {
	m.passMu.Lock()
	defer m.passMu.Unlock()
	start := time.Now()
	now := m.clock()

	eligible, err := m.store.ListShipments(ctx, store.ShipmentFilter{
		Direction:  model.DirectionOutbound,
		Statuses:   []model.Status{model.StatusPacked, model.StatusReceived},
		Unassigned: true,
	})
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("list eligible shipments: %w", err)
	}
	if len(eligible) == 0 {
		return OptimizationResult{}, apperr.New(apperr.ErrNoEligibleShipments, "no packed or received outbound shipment is waiting for a driver")
	}

	sort.SliceStable(eligible, func(i, j int) bool { return model.Less(eligible[i], eligible[j]) })
	zones, order := partition(eligible)
	plans := make([]ZonePlan, len(order))
	g, gctx := errgroup.WithContext(ctx)
	if !m.cfg.Parallel() {
		g.SetLimit(1)
	}
	for i, zone := range order {
		g.Go(func() error {
			drivers, err := m.store.ListDrivers(gctx, store.DriverFilter{Zone: zone, AvailableOnly: true})
			if err != nil {
				return fmt.Errorf("list drivers for zone %s: %w", zone, err)
			}
			plans[i] = PackZone(zone, zones[zone], drivers, now, m.cfg)
			m.logger.Debugw("zone packed", map[string]any{
				"zone":       zone,
				"shipments":  len(zones[zone]),
				"drivers":    len(drivers),
				"assigned":   plans[i].Assigned(),
				"unassigned": len(plans[i].Unassigned),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OptimizationResult{}, err
	}

	passID := uuid.NewString()
	res := OptimizationResult{
		PassID:      passID,
		Eligible:    len(eligible),
		ByPriority:  map[string]int{},
		Assignments: map[string][]string{},
	}
	totals := passTotals{eligible: len(eligible)}
	for _, s := range eligible {
		if s.Priority == model.PriorityExpress {
			totals.express++
		}
	}
	var assignEvents []metrics.AssignmentEvent
	for _, plan := range plans {
		totals.capacity += plan.CapacityConsidered
		totals.regChecks += plan.RegulationChecks
		totals.regRejects += plan.RegulationRejections
		totals.windowChecks += plan.WindowChecks
		totals.windowRejects += plan.WindowRejections
		unassigned := append([]*model.Shipment(nil), plan.Unassigned...)
		for _, load := range plan.Loads {
			committed, err := m.commit(ctx, load, model.MethodAutoAssign, now)
			if err != nil {
				collectors.commitFailures.Inc()
				m.logger.Errorf("commit %d shipments to driver %s: %v", len(load.Shipments), load.Driver.ID, err)
				monitoring.CaptureException(err, map[string]string{"component": "dispatch", "driver": load.Driver.ID})
				unassigned = append(unassigned, load.Shipments...)
				continue
			}
			for _, s := range committed {
				totals.assigned++
				totals.usedWeight += s.Weight
				if s.Priority == model.PriorityExpress {
					totals.expressAssigned++
				}
				res.ByPriority[s.Priority.String()]++
				res.Assignments[load.Driver.ID] = append(res.Assignments[load.Driver.ID], s.TrackingID)
				collectors.assigned.WithLabelValues(plan.Zone, s.Priority.String()).Inc()
				assignEvents = append(assignEvents, assignmentEvent(passID, s, load.Driver.ID, model.MethodAutoAssign, now))
			}
		}
		for _, s := range unassigned {
			res.Unassigned = append(res.Unassigned, s.TrackingID)
		}
		collectors.observeZone(plan, len(unassigned))
	}
	res.Assigned = totals.assigned
	score(totals, &res)

	dur := time.Since(start)
	collectors.duration.WithLabelValues(model.MethodAutoAssign).Observe(dur.Seconds())
	collectors.score.Set(res.Score)
	m.recordPass(res, model.MethodAutoAssign, dur, now, assignEvents)
	m.appendAudit(ctx, logging.LogRecord{
		Timestamp:   now,
		PassID:      passID,
		Method:      model.MethodAutoAssign,
		Assignments: res.Assignments,
		Unassigned:  res.Unassigned,
		Result: &logging.Result{
			Score:                res.Score,
			AssignmentRate:       res.AssignmentRate,
			ExpressCoverage:      res.ExpressCoverage,
			Utilization:          res.Utilization,
			RegulationCompliance: res.RegulationCompliance,
			TimeWindowCompliance: res.TimeWindowCompliance,
		},
	})
	m.logger.Infof("auto-assign pass %s: %d/%d assigned across %d zones, score %.0f",
		passID, res.Assigned, res.Eligible, len(order), res.Score)
	return res, nil
}

// AssignBatch assigns every shipment of a batch to one driver, or none of
// them. All checks run before any write.
//
//gocyclo:ignore
func (m *Manager) AssignBatch(ctx context.Context, batchID, driverID string) error {
	if batchID == "" {
		return apperr.New(apperr.ErrValidation, "batch id is required")
	}
	if driverID == "" {
		return apperr.New(apperr.ErrValidation, "driver id is required")
	}
	start := time.Now()
	now := m.clock()
	batch, err := m.store.ListShipments(ctx, store.ShipmentFilter{BatchID: batchID})
	if err != nil {
		return fmt.Errorf("list batch %s: %w", batchID, err)
	}
	if len(batch) == 0 {
		return apperr.New(apperr.ErrNotFound, "batch %s", batchID)
	}
	driver, err := m.store.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if !driver.Available {
		return apperr.New(apperr.ErrDriverUnavailable, "driver %s is not available", driverID)
	}
	for _, s := range batch {
		if !s.Dispatchable() {
			return apperr.New(apperr.ErrIneligibleShipment, "shipment %s is %s %s", s.TrackingID, s.Direction, s.Status)
		}
		if s.Zone != driver.Zone {
			return apperr.New(apperr.ErrZoneMismatch, "shipment %s is in zone %s, driver %s in %s", s.TrackingID, s.Zone, driverID, driver.Zone)
		}
	}
	violation, reason, minutes := checkBatch(*driver, batch, now, m.cfg)
	switch violation {
	case "capacity":
		return apperr.New(apperr.ErrCapacityExceeded, "batch %s does not fit driver %s (spare %.2f kg, %.2f volume)",
			batchID, driverID, driver.SpareWeight(), driver.SpareVolume())
	case "window":
		return apperr.New(apperr.ErrTimeWindowConflict, "batch %s cannot reach every delivery window within %d min", batchID, minutes)
	case "regulation":
		return apperr.New(apperr.ErrRegulationViolation, "driver %s: %s", driverID, reason)
	}

	committed, err := m.commit(ctx, DriverLoad{Driver: *driver, Shipments: batch, Minutes: minutes}, model.MethodBatchAssign, now)
	if err != nil {
		collectors.commitFailures.Inc()
		return err
	}
	passID := uuid.NewString()
	tracking := make([]string, 0, len(committed))
	evs := make([]metrics.AssignmentEvent, 0, len(committed))
	for _, s := range committed {
		tracking = append(tracking, s.TrackingID)
		collectors.assigned.WithLabelValues(s.Zone, s.Priority.String()).Inc()
		evs = append(evs, assignmentEvent(passID, s, driverID, model.MethodBatchAssign, now))
	}
	dur := time.Since(start)
	collectors.duration.WithLabelValues(model.MethodBatchAssign).Observe(dur.Seconds())
	m.recordPass(OptimizationResult{PassID: passID, Eligible: len(batch), Assigned: len(committed)}, model.MethodBatchAssign, dur, now, evs)
	m.appendAudit(ctx, logging.LogRecord{
		Timestamp:   now,
		PassID:      passID,
		Method:      model.MethodBatchAssign,
		Assignments: map[string][]string{driverID: tracking},
	})
	m.logger.Infof("batch %s assigned to driver %s (%d shipments)", batchID, driverID, len(committed))
	return nil
}

// Manifest returns the dispatch records of a driver.
func (m *Manager) Manifest(ctx context.Context, driverID string) ([]model.DispatchRecord, error) {
	if driverID == "" {
		return nil, apperr.New(apperr.ErrValidation, "driver id is required")
	}
	if _, err := m.store.GetDriver(ctx, driverID); err != nil {
		return nil, err
	}
	return m.store.ListDispatches(ctx, store.DispatchFilter{DriverID: driverID})
}

// commit persists one driver's load and publishes an event per shipment.
func (m *Manager) commit(ctx context.Context, load DriverLoad, method string, now time.Time) ([]*model.Shipment, error) {
	ids := make([]string, len(load.Shipments))
	for i, s := range load.Shipments {
		ids[i] = s.ID
	}
	committed, err := m.store.CommitAssignment(ctx, store.Assignment{
		DriverID:    load.Driver.ID,
		ShipmentIDs: ids,
		Method:      method,
		At:          now,
	})
	if err != nil {
		return nil, err
	}
	if m.bus != nil {
		for _, s := range committed {
			m.bus.Publish(events.DispatchAssigned{
				ShipmentID: s.ID,
				TrackingID: s.TrackingID,
				DriverID:   load.Driver.ID,
				Zone:       s.Zone,
				Priority:   s.Priority.String(),
				From:       s.PreviousStatus(),
				To:         s.Status,
				Method:     method,
				At:         now,
			})
		}
	}
	return committed, nil
}

func (m *Manager) recordPass(res OptimizationResult, method string, dur time.Duration, now time.Time, evs []metrics.AssignmentEvent) {
	if err := m.metrics.RecordDispatchPass(metrics.PassEvent{
		PassID:      res.PassID,
		Method:      method,
		Eligible:    res.Eligible,
		Assigned:    res.Assigned,
		Unassigned:  res.Eligible - res.Assigned,
		Score:       res.Score,
		Utilization: res.Utilization,
		Duration:    dur,
		Time:        now,
	}); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
	if ar, ok := m.metrics.(metrics.AssignmentRecorder); ok && len(evs) > 0 {
		if err := ar.RecordAssignments(evs); err != nil {
			m.logger.Errorf("assignment metrics error: %v", err)
		}
	}
}

func (m *Manager) appendAudit(ctx context.Context, rec logging.LogRecord) {
	m.mu.Lock()
	audit := m.audit
	m.mu.Unlock()
	if audit == nil {
		return
	}
	if err := audit.Append(ctx, rec); err != nil {
		m.logger.Errorf("audit log append: %v", err)
	}
}

// partition groups sorted shipments by zone, keeping first-seen zone order.
func partition(sorted []*model.Shipment) (map[string][]*model.Shipment, []string) {
	zones := make(map[string][]*model.Shipment)
	var order []string
	for _, s := range sorted {
		if _, ok := zones[s.Zone]; !ok {
			order = append(order, s.Zone)
		}
		zones[s.Zone] = append(zones[s.Zone], s)
	}
	return zones, order
}

func assignmentEvent(passID string, s *model.Shipment, driverID, method string, at time.Time) metrics.AssignmentEvent {
	return metrics.AssignmentEvent{
		PassID:     passID,
		ShipmentID: s.ID,
		TrackingID: s.TrackingID,
		DriverID:   driverID,
		Zone:       s.Zone,
		Priority:   s.Priority.String(),
		Method:     method,
		Weight:     s.Weight,
		Volume:     s.Volume,
		Time:       at,
	}
}

// IsNothingToDo reports whether err only signals an empty candidate set.
func IsNothingToDo(err error) bool { return errors.Is(err, apperr.ErrNoEligibleShipments) }
