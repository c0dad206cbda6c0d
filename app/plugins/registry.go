package plugins

import (
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/factory"
	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/infra/relay"
)

var (
	// Relays builds event publishers keyed by type.
	Relays = factory.NewRegistry[relay.Publisher]()
	// LogStores builds allocation audit stores keyed by backend.
	LogStores = factory.NewRegistry[dispatchlog.LogStore]()
)

// RegisterRelay adds a relay publisher factory.
func RegisterRelay(name string, f factory.Factory[relay.Publisher]) error {
	return Relays.Register(name, f)
}

// RegisterLogStore adds a log store factory.
func RegisterLogStore(name string, f factory.Factory[dispatchlog.LogStore]) error {
	return LogStores.Register(name, f)
}

// NewRelayTargets builds one named target per configuration entry. Targets
// created before a failure are closed.
func NewRelayTargets(cfgs []factory.ModuleConfig) ([]relay.Target, error) {
	targets := make([]relay.Target, 0, len(cfgs))
	for i, c := range cfgs {
		p, err := Relays.Create(c)
		if err != nil {
			for _, t := range targets {
				_ = t.Publisher.Close()
			}
			return nil, fmt.Errorf("relay %d (%s): %w", i, c.Type, err)
		}
		targets = append(targets, relay.Target{Name: fmt.Sprintf("%s-%d", c.Type, i), Publisher: p})
	}
	return targets, nil
}
