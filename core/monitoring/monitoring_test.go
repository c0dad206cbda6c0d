package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recorder struct {
	errs    []error
	panics  []any
	flushes int
}

func (r *recorder) CaptureException(err error, _ map[string]string) { r.errs = append(r.errs, err) }
func (r *recorder) RecoverPanic(v any)                              { r.panics = append(r.panics, v) }
func (r *recorder) Flush(time.Duration)                             { r.flushes++ }

func TestCaptureException(t *testing.T) {
	rec := &recorder{}
	Init(rec)
	defer Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("commit failed"), map[string]string{"component": "dispatch"})
	if len(rec.errs) != 1 {
		t.Fatalf("expected one captured error, got %d", len(rec.errs))
	}
	Flush(time.Second)
	if rec.flushes != 1 {
		t.Fatalf("flush not forwarded")
	}
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	rec := &recorder{}
	Init(rec)
	defer Init(nil)

	func() {
		defer func() {
			if r := recover(); r != "sweep exploded" {
				t.Fatalf("expected the panic to propagate, got %v", r)
			}
		}()
		func() {
			defer Recover()
			panic("sweep exploded")
		}()
	}()
	if len(rec.panics) != 1 || rec.panics[0] != "sweep exploded" || rec.flushes != 1 {
		t.Fatalf("panic not reported: %+v", rec)
	}
}

func TestInitNilRestoresNop(t *testing.T) {
	Init(nil)
	if _, ok := Current().(NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", Current())
	}
}
