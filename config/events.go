package config

import (
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/factory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/internal/eventbus"
)

// EventsConfig sizes the in-process bus and lists the external relays.
type EventsConfig struct {
	// Buffer is the per-subscriber channel capacity.
	Buffer int `json:"buffer"`
	// Relays are built by type: "log", "mqtt" or "amqp".
	Relays []factory.ModuleConfig `json:"relays"`
}

// SetDefaults applies sane defaults.
func (c *EventsConfig) SetDefaults() {
	if c.Buffer <= 0 {
		c.Buffer = 4 * eventbus.DefaultBuffer
	}
}

// Validate checks relay entries.
func (c EventsConfig) Validate() error {
	for i, r := range c.Relays {
		if r.Type == "" {
			return fmt.Errorf("relay %d: type is required", i)
		}
	}
	return nil
}
