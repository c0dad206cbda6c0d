// Package metrics defines the sinks that observe allocation, reservation and
// delivery activity. A MetricsSink only has to record dispatch passes; the
// optional recorder interfaces are discovered with type assertions so a sink
// implements just what it can store. NewMetricsSink builds sinks from
// configuration and wraps several of them in a MultiSink.
package metrics
