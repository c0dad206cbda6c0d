// Package relay forwards domain events from the in-process bus to external
// publishers. Delivery is best effort: a failing publisher is logged and
// reported but never blocks or fails the operation that raised the event.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// DefaultTimeout bounds a single publish call.
const DefaultTimeout = 5 * time.Second

// Envelope is the wire form of a relayed event.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps ev with a fresh id.
func NewEnvelope(ev events.Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Name:       ev.EventName(),
		OccurredAt: ev.OccurredAt().UTC(),
		Payload:    payload,
	}, nil
}

// Publisher delivers envelopes to an external system.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Target is a named publisher.
type Target struct {
	Name      string
	Publisher Publisher
}

// Relay subscribes to an event bus and fans each event out to its targets.
type Relay struct {
	bus     eventbus.EventBus
	targets []Target
	log     logger.Logger
	timeout time.Duration

	mu   sync.Mutex
	sub  <-chan eventbus.Event
	done chan struct{}
}

// New creates a relay. It does not subscribe until Start is called.
func New(bus eventbus.EventBus, log logger.Logger, targets ...Target) (*Relay, error) {
	if bus == nil {
		return nil, fmt.Errorf("relay: event bus required")
	}
	log = logger.OrNop(log)
	for _, t := range targets {
		if t.Publisher == nil {
			return nil, fmt.Errorf("relay: publisher %q is nil", t.Name)
		}
	}
	return &Relay{bus: bus, targets: targets, log: log, timeout: DefaultTimeout}, nil
}

// SetTimeout overrides the per-publish timeout.
func (r *Relay) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Start subscribes and forwards events until ctx is done or Stop is called.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	if r.sub != nil {
		r.mu.Unlock()
		return
	}
	sub := r.bus.Subscribe()
	done := make(chan struct{})
	r.sub, r.done = sub, done
	r.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				r.Forward(ctx, ev)
			}
		}
	}()
}

// Forward delivers one bus event to every target. Values that are not
// domain events are ignored.
func (r *Relay) Forward(ctx context.Context, e eventbus.Event) {
	ev, ok := e.(events.Event)
	if !ok {
		return
	}
	env, err := NewEnvelope(ev)
	if err != nil {
		r.log.Errorf("relay: %v", err)
		monitoring.CaptureException(err, map[string]string{"module": "relay", "event": ev.EventName()})
		return
	}
	for _, t := range r.targets {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := t.Publisher.Publish(pctx, env)
		cancel()
		if err != nil {
			relayFailures.WithLabelValues(t.Name, env.Name).Inc()
			r.log.Errorf("relay: publish %s to %s failed: %v", env.Name, t.Name, err)
			monitoring.CaptureException(err, map[string]string{"module": "relay", "publisher": t.Name, "event": env.Name})
			continue
		}
		relayForwarded.WithLabelValues(t.Name, env.Name).Inc()
	}
}

// Stop unsubscribes, waits for the forwarding loop and closes every target.
func (r *Relay) Stop() {
	r.mu.Lock()
	sub, done := r.sub, r.done
	r.sub, r.done = nil, nil
	r.mu.Unlock()
	if sub != nil {
		r.bus.Unsubscribe(sub)
		<-done
	}
	for _, t := range r.targets {
		if err := t.Publisher.Close(); err != nil {
			r.log.Warnf("relay: close %s: %v", t.Name, err)
		}
	}
}
