// Package monitoring routes unexpected errors and panics to the configured
// error tracker. Core packages call the package functions; the service
// installs the implementation once at startup.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor reports errors to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// RecoverPanic reports a recovered panic value.
	RecoverPanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) RecoverPanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{NopMonitor{}}) }

// Init installs m. A nil m restores the no-op monitor.
func Init(m Monitor) {
	if m == nil {
		m = NopMonitor{}
	}
	current.Store(&holder{m})
}

// Current returns the installed monitor.
func Current() Monitor { return current.Load().m }

// CaptureException reports err. A nil err is ignored.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}

// Recover reports a panic of the calling goroutine, flushes, and panics
// again. It must be deferred directly: defer monitoring.Recover().
func Recover() {
	if r := recover(); r != nil {
		m := Current()
		m.RecoverPanic(r)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush waits up to d for buffered reports to be sent.
func Flush(d time.Duration) { Current().Flush(d) }
