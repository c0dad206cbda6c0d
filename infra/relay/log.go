package relay

import (
	"context"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
)

// LogPublisher writes envelopes to a logger. Useful in development.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher returns a publisher logging through log.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	log = logger.OrNop(log)
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, env Envelope) error {
	p.log.Infof("event %s id=%s at=%s payload=%s", env.Name, env.ID, env.OccurredAt.Format(time.RFC3339Nano), env.Payload)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
