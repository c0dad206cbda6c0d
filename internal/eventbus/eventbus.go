// Package eventbus carries domain events from the engines to the relay,
// the metrics collector and any other in-process listener.
package eventbus

// Event is any value published on the bus, normally an events.Envelope.
type Event interface{}

// EventBus is the untyped publish/subscribe surface used by the engines.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// DefaultBuffer is the per-subscriber channel capacity when none is given.
const DefaultBuffer = 8

// Bus is the EventBus used by the service.
type Bus struct {
	*TypedBus[Event]
}

var _ EventBus = (*Bus)(nil)

// New creates a Bus with DefaultBuffer slots per subscriber.
func New() *Bus { return NewWithBuffer(DefaultBuffer) }

// NewWithBuffer creates a Bus whose subscribers buffer up to n events.
func NewWithBuffer(n int) *Bus {
	return &Bus{TypedBus: NewTypedWithBuffer[Event](n)}
}
