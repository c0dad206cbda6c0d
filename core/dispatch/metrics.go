package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// passCollectors are the Prometheus series maintained by the Manager.
type passCollectors struct {
	duration       *prometheus.HistogramVec
	assigned       *prometheus.CounterVec
	unassigned     *prometheus.CounterVec
	zoneLoadFactor *prometheus.GaugeVec
	score          prometheus.Gauge
	commitFailures prometheus.Counter
}

var collectors = newPassCollectors()

func init() { MustRegisterMetrics(nil) }

func newPassCollectors() *passCollectors {
	return &passCollectors{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_pass_duration_seconds",
			Help:    "Duration of allocation passes by method",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method"}),
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_shipments_assigned_total",
			Help: "Shipments handed to a driver",
		}, []string{"zone", "priority"}),
		unassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_shipments_unassigned_total",
			Help: "Eligible shipments an auto-assignment pass could not place",
		}, []string{"zone"}),
		zoneLoadFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_zone_load_factor",
			Help: "Assigned weight over considered driver capacity in the last pass",
		}, []string{"zone"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_optimization_score",
			Help: "Optimization score of the last auto-assignment pass",
		}),
		commitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_commit_failures_total",
			Help: "Driver batches whose commit failed",
		}),
	}
}

func (c *passCollectors) list() []prometheus.Collector {
	return []prometheus.Collector{c.duration, c.assigned, c.unassigned, c.zoneLoadFactor, c.score, c.commitFailures}
}

// observeZone records the outcome of packing one zone.
func (c *passCollectors) observeZone(plan ZonePlan, unassigned int) {
	c.unassigned.WithLabelValues(plan.Zone).Add(float64(unassigned))
	if plan.CapacityConsidered > 0 {
		c.zoneLoadFactor.WithLabelValues(plan.Zone).Set(plan.AssignedWeight() / plan.CapacityConsidered)
	}
}

// MustRegisterMetrics registers the dispatch series on reg, or on the
// default registerer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(collectors.list()...)
}

// ResetMetrics swaps in fresh collectors, registered on reg when non-nil.
// Tests use it to start from zero.
func ResetMetrics(reg prometheus.Registerer) {
	collectors = newPassCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
