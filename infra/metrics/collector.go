package metrics

import (
	"context"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/events"
	coremetrics "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// StartEventCollector feeds every domain event on bus to the sink's
// RecordEvent. The subscription exists when the call returns. The returned
// channel is closed once the collector has detached, after ctx is canceled
// or the bus is closed. Sinks without RecordEvent get an already closed
// channel.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.EventRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, open := <-sub:
				if !open {
					return
				}
				ev, isDomain := msg.(events.Event)
				if !isDomain {
					continue
				}
				_ = rec.RecordEvent(coremetrics.DomainEvent{Name: ev.EventName(), Time: ev.OccurredAt()})
			}
		}
	}()
	return done
}
