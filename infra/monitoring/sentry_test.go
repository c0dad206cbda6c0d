package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/config"
	coremon "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
)

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitor_InvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"}); err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}

func TestClientOptionsDefaults(t *testing.T) {
	opts := clientOptions(config.SentryConfig{DSN: "https://key@example.com/1", Release: "1.2.3"})
	if opts.Environment != "production" || opts.Release != "1.2.3" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestCaptureExceptionTags(t *testing.T) {
	rec := &captured{}
	opts := clientOptions(config.SentryConfig{DSN: "https://key@example.com/1"})
	opts.BeforeSend = rec.beforeSend
	m, err := newSentryMonitor(opts)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("boom"), map[string]string{"module": "reservation", "sku": "SKU-1"})
	m.CaptureException(errors.New("plain"), nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	tags := rec.events[0].Tags
	if tags["module"] != "reservation" || tags["sku"] != "SKU-1" || tags["service"] != ServiceTag {
		t.Fatalf("unexpected tags %v", tags)
	}
	if _, ok := rec.events[1].Tags["module"]; ok {
		t.Fatalf("scoped tags leaked into the next event: %v", rec.events[1].Tags)
	}
}

func TestRecoverPanic(t *testing.T) {
	rec := &captured{}
	opts := clientOptions(config.SentryConfig{DSN: "https://key@example.com/1"})
	opts.BeforeSend = rec.beforeSend
	m, err := newSentryMonitor(opts)
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	m.RecoverPanic("relay worker crashed")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0].Tags["service"] != ServiceTag {
		t.Fatalf("expected one tagged panic event, got %+v", rec.events)
	}
}
