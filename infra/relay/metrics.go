package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	relayForwarded *prometheus.CounterVec
	relayFailures  *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	fwd := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_forwarded_total",
			Help: "Number of events delivered to an external publisher",
		},
		[]string{"publisher", "event"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_publish_failures_total",
			Help: "Number of failed event deliveries",
		},
		[]string{"publisher", "event"},
	)
	return fwd, fail
}

func init() {
	relayForwarded, relayFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers relay metrics on reg, or the default registerer when nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(relayForwarded, relayFailures)
}

// ResetMetrics recreates the collectors for tests and registers them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	relayForwarded, relayFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
