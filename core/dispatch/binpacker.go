package dispatch

import (
	"sort"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/regulation"
)

// DriverLoad is the set of shipments packed for one driver in a pass.
type DriverLoad struct {
	Driver    model.Driver
	Shipments []*model.Shipment
	Weight    float64
	Volume    float64
	Minutes   int
}

// ZonePlan is the outcome of packing one zone.
type ZonePlan struct {
	Zone       string
	Loads      []DriverLoad
	Unassigned []*model.Shipment
	// CapacityConsidered sums the capacity of drivers with spare weight.
	CapacityConsidered float64

	RegulationChecks     int
	RegulationRejections int
	WindowChecks         int
	WindowRejections     int
}

// Assigned returns the number of shipments placed on a driver.
func (p ZonePlan) Assigned() int {
	n := 0
	for _, l := range p.Loads {
		n += len(l.Shipments)
	}
	return n
}

// AssignedWeight returns the total weight placed on drivers.
func (p ZonePlan) AssignedWeight() float64 {
	var w float64
	for _, l := range p.Loads {
		w += l.Weight
	}
	return w
}

// PackZone greedily packs shipments, already sorted by model.Less, onto the
// zone's drivers. Drivers are filled in order of spare weight, largest
// first; a shipment rejected by one driver stays in the pool for the next.
// PackZone performs no I/O.
//
//gocyclo:ignore
func PackZone(zone string, shipments []*model.Shipment, drivers []model.Driver, now time.Time, cfg Config) ZonePlan {
	plan := ZonePlan{Zone: zone}
	if len(drivers) == 0 {
		plan.Unassigned = append(plan.Unassigned, shipments...)
		return plan
	}
	ordered := append([]model.Driver(nil), drivers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].SpareWeight(), ordered[j].SpareWeight()
		if si != sj {
			return si > sj
		}
		return ordered[i].ID < ordered[j].ID
	})

	pool := append([]*model.Shipment(nil), shipments...)
	for _, d := range ordered {
		if d.SpareWeight() <= 0 {
			continue
		}
		plan.CapacityConsidered += d.Capacity
		if len(pool) == 0 {
			continue
		}
		load := DriverLoad{Driver: d}
		spareW, spareV := d.SpareWeight(), d.SpareVolume()
		rest := pool[:0:0]
		for _, s := range pool {
			if load.Weight+s.Weight > spareW || load.Volume+s.Volume > spareV {
				rest = append(rest, s)
				continue
			}
			minutes := cfg.EstimateMinutes(len(load.Shipments) + 1)
			if s.DeliveryWindow != nil {
				plan.WindowChecks++
				if !windowReachable(*s.DeliveryWindow, now, minutes) {
					plan.WindowRejections++
					rest = append(rest, s)
					continue
				}
			}
			plan.RegulationChecks++
			if res := regulation.Check(d, minutes); !res.Allowed {
				plan.RegulationRejections++
				rest = append(rest, s)
				continue
			}
			load.Shipments = append(load.Shipments, s)
			load.Weight += s.Weight
			load.Volume += s.Volume
			load.Minutes = minutes
		}
		pool = rest
		if len(load.Shipments) > 0 {
			plan.Loads = append(plan.Loads, load)
		}
	}
	plan.Unassigned = append(plan.Unassigned, pool...)
	return plan
}

// windowReachable reports whether a stop reached after minutes of driving
// still lands before the end of the window.
func windowReachable(w model.TimeWindow, now time.Time, minutes int) bool {
	eta := now.Add(time.Duration(minutes) * time.Minute)
	return !eta.After(w.End)
}

// checkBatch applies the packing constraints to an explicit batch for one
// driver without greedy selection. It returns the first violated constraint
// and, for regulation, the checker's reason.
func checkBatch(d model.Driver, batch []*model.Shipment, now time.Time, cfg Config) (violation, reason string, minutes int) {
	var weight, volume float64
	for _, s := range batch {
		weight += s.Weight
		volume += s.Volume
	}
	if weight > d.SpareWeight() || volume > d.SpareVolume() {
		return "capacity", "", 0
	}
	minutes = cfg.EstimateMinutes(len(batch))
	for _, s := range batch {
		if s.DeliveryWindow != nil && !windowReachable(*s.DeliveryWindow, now, minutes) {
			return "window", "", minutes
		}
	}
	if res := regulation.Check(d, minutes); !res.Allowed {
		return "regulation", res.Reason, minutes
	}
	return "", "", minutes
}
