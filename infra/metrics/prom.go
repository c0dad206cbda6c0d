package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
)

// PromSink records allocation, reservation and lifecycle outcomes in
// Prometheus metrics. The /metrics endpoint is served by StartPromServer.
type PromSink struct {
	passes       *prometheus.CounterVec
	passLatency  *prometheus.HistogramVec
	utilization  *prometheus.GaugeVec
	reservations *prometheus.CounterVec
	preempted    prometheus.Counter
	conflicts    *prometheus.CounterVec
	escalations  *prometheus.CounterVec
	overdue      prometheus.Histogram
	deliveries   *prometheus.CounterVec
	events       *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
//
//gocyclo:ignore
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var (
		s   PromSink
		err error
	)
	if s.passes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_passes_total",
		Help: "Number of allocation passes by method and whether anything was assigned",
	}, []string{"method", "assigned"})); err != nil {
		return nil, err
	}
	if s.passLatency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_pass_latency_seconds",
		Help:    "Wall time of allocation passes as reported by the orchestrator",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "allocation_fleet_utilization_ratio",
		Help: "Share of considered driver capacity filled by the last pass",
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if s.reservations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_total",
		Help: "Reservation decisions by outcome",
	}, []string{"outcome", "warehouse"})); err != nil {
		return nil, err
	}
	if s.preempted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_preempted_shipments_total",
		Help: "Number of lower-priority shipments demoted to free stock",
	})); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_conflicts_total",
		Help: "Split-brain conflicts detected or resolved",
	}, []string{"resolved"})); err != nil {
		return nil, err
	}
	if s.escalations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_escalations_total",
		Help: "Shipments escalated past their SLA deadline",
	}, []string{"tier"})); err != nil {
		return nil, err
	}
	if s.overdue, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sla_overdue_seconds",
		Help:    "How late a shipment was when the sweeper escalated it",
		Buckets: []float64{60, 300, 900, 3600, 4 * 3600, 12 * 3600, 24 * 3600},
	})); err != nil {
		return nil, err
	}
	if s.deliveries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_outcomes_total",
		Help: "Finished deliveries by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_total",
		Help: "Domain events observed on the event bus",
	}, []string{"event"})); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *PromSink) RecordDispatchPass(ev coremetrics.PassEvent) error {
	s.passes.WithLabelValues(ev.Method, strconv.FormatBool(ev.Assigned > 0)).Inc()
	s.passLatency.WithLabelValues(ev.Method).Observe(ev.Duration.Seconds())
	s.utilization.WithLabelValues(ev.Method).Set(ev.Utilization)
	return nil
}

func (s *PromSink) RecordReservation(ev coremetrics.ReservationEvent) error {
	s.reservations.WithLabelValues(ev.Outcome, ev.Warehouse).Inc()
	if ev.Victims > 0 {
		s.preempted.Add(float64(ev.Victims))
	}
	return nil
}

func (s *PromSink) RecordConflict(ev coremetrics.ConflictEvent) error {
	s.conflicts.WithLabelValues(strconv.FormatBool(ev.Resolved)).Inc()
	return nil
}

func (s *PromSink) RecordEscalation(ev coremetrics.EscalationEvent) error {
	s.escalations.WithLabelValues(ev.Tier).Inc()
	s.overdue.Observe(ev.Overdue.Seconds())
	return nil
}

func (s *PromSink) RecordDelivery(ev coremetrics.DeliveryEvent) error {
	s.deliveries.WithLabelValues(ev.Outcome).Inc()
	return nil
}

func (s *PromSink) RecordEvent(ev coremetrics.DomainEvent) error {
	s.events.WithLabelValues(ev.Name).Inc()
	return nil
}
