package model

import "time"

// DefaultVolumeCapacity applies to drivers without a configured volume capacity.
const DefaultVolumeCapacity = 20.0

// ShiftWindow is the working period of a driver.
type ShiftWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Driver represents a delivery driver and the vehicle they operate.
type Driver struct {
	ID             string  `json:"id"`
	Name           string  `json:"name,omitempty"`
	Zone           string  `json:"zone"`
	Capacity       float64 `json:"capacity"`
	CurrentLoad    float64 `json:"current_load"`
	VolumeCapacity float64 `json:"volume_capacity"`
	CurrentVolume  float64 `json:"current_volume"`
	Available      bool    `json:"available"`
	// CumulativeDrivingMinutes resets daily.
	CumulativeDrivingMinutes int `json:"cumulative_driving_minutes"`
	// ContinuousDrivingMinutes resets on break.
	ContinuousDrivingMinutes int          `json:"continuous_driving_minutes"`
	Shift                    *ShiftWindow `json:"shift,omitempty"`
}

// EffectiveVolumeCapacity returns the volume capacity, defaulting when unset.
func (d Driver) EffectiveVolumeCapacity() float64 {
	if d.VolumeCapacity <= 0 {
		return DefaultVolumeCapacity
	}
	return d.VolumeCapacity
}

// SpareWeight returns the remaining weight capacity.
func (d Driver) SpareWeight() float64 { return d.Capacity - d.CurrentLoad }

// SpareVolume returns the remaining volume capacity.
func (d Driver) SpareVolume() float64 { return d.EffectiveVolumeCapacity() - d.CurrentVolume }
