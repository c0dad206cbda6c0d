// Package regulation validates driving-time limits before a driver is given
// more work. Check is the single authority for that decision.
package regulation

import (
	"fmt"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

const (
	// DailyLimitMinutes is the maximum cumulative driving time per day.
	DailyLimitMinutes = 600
	// ContinuousLimitMinutes is the maximum driving time without a break.
	ContinuousLimitMinutes = 300
	// BufferMinutes is kept free below both limits.
	BufferMinutes = 15
)

// Result is the outcome of a regulation check.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Check reports whether the driver may take on additionalMinutes of driving.
// Both limits are evaluated independently; the daily limit is reported first.
func Check(d model.Driver, additionalMinutes int) Result {
	daily := d.CumulativeDrivingMinutes + additionalMinutes
	if daily > DailyLimitMinutes-BufferMinutes {
		return Result{Reason: fmt.Sprintf(
			"daily driving limit: %d min driven + %d min estimated exceeds %d min",
			d.CumulativeDrivingMinutes, additionalMinutes, DailyLimitMinutes-BufferMinutes)}
	}
	continuous := d.ContinuousDrivingMinutes + additionalMinutes
	if continuous > ContinuousLimitMinutes-BufferMinutes {
		return Result{Reason: fmt.Sprintf(
			"continuous driving limit: %d min since break + %d min estimated exceeds %d min, break required",
			d.ContinuousDrivingMinutes, additionalMinutes, ContinuousLimitMinutes-BufferMinutes)}
	}
	return Result{Allowed: true}
}
