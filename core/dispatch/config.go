package dispatch

import "fmt"

// Config defines dispatch-related settings.
type Config struct {
	ServiceMinutesPerStop int   `json:"service_minutes_per_stop"`
	StopOverheadMinutes   int   `json:"stop_overhead_minutes"`
	ParallelZones         *bool `json:"parallel_zones"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ServiceMinutesPerStop == 0 {
		c.ServiceMinutesPerStop = 20
	}
	if c.StopOverheadMinutes == 0 {
		c.StopOverheadMinutes = 15
	}
	if c.ParallelZones == nil {
		v := true
		c.ParallelZones = &v
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.ServiceMinutesPerStop < 0 || c.StopOverheadMinutes < 0 {
		return fmt.Errorf("dispatch: minute estimates must not be negative")
	}
	return nil
}

// Parallel reports whether zones are packed concurrently.
func (c Config) Parallel() bool { return c.ParallelZones == nil || *c.ParallelZones }

// EstimateMinutes returns the fixed drive-time estimate for n stops.
func (c Config) EstimateMinutes(n int) int {
	return c.ServiceMinutesPerStop*n + c.StopOverheadMinutes
}
