package inventory

import "fmt"

// Config defines reservation settings.
type Config struct {
	// DefaultWarehouse applies to requests and shipments without a warehouse code.
	DefaultWarehouse string `json:"default_warehouse"`
	// MaxAttempts bounds how often a reservation is re-evaluated after
	// losing a race for stock.
	MaxAttempts int `json:"max_attempts"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.DefaultWarehouse == "" {
		c.DefaultWarehouse = "MAIN"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts > 20 {
		return fmt.Errorf("reservation: max_attempts must be at most 20, got %d", c.MaxAttempts)
	}
	return nil
}
