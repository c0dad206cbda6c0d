// Package scheduler runs periodic jobs such as the SLA sweep. Schedulers are
// injected rather than global so they can be started, stopped and, with
// ManualClock, driven deterministically in tests.
package scheduler
