// Package scenarios replays YAML allocation scenarios against the in-memory
// engines.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/inventory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

type DriverDef struct {
	ID                string  `yaml:"id"`
	Zone              string  `yaml:"zone"`
	Capacity          float64 `yaml:"capacity"`
	VolumeCapacity    float64 `yaml:"volume_capacity"`
	CurrentLoad       float64 `yaml:"current_load"`
	Available         bool    `yaml:"available"`
	CumulativeMinutes int     `yaml:"cumulative_minutes"`
	ContinuousMinutes int     `yaml:"continuous_minutes"`
}

func (d DriverDef) ToModel() model.Driver {
	return model.Driver{
		ID:                       d.ID,
		Zone:                     d.Zone,
		Capacity:                 d.Capacity,
		VolumeCapacity:           d.VolumeCapacity,
		CurrentLoad:              d.CurrentLoad,
		Available:                d.Available,
		CumulativeDrivingMinutes: d.CumulativeMinutes,
		ContinuousDrivingMinutes: d.ContinuousMinutes,
	}
}

type StockDef struct {
	SKU       string `yaml:"sku"`
	Warehouse string `yaml:"warehouse"`
	OnHand    int    `yaml:"on_hand"`
}

type ShipmentDef struct {
	TrackingID string  `yaml:"tracking_id"`
	SKU        string  `yaml:"sku"`
	Quantity   int     `yaml:"quantity"`
	Direction  string  `yaml:"direction"`
	Priority   string  `yaml:"priority"`
	Zone       string  `yaml:"zone"`
	Warehouse  string  `yaml:"warehouse"`
	Weight     float64 `yaml:"weight"`
	Volume     float64 `yaml:"volume"`
	Batch      string  `yaml:"batch"`
	SLATier    string  `yaml:"sla_tier"`
	// WindowMinutes closes the delivery window this many minutes after now.
	WindowMinutes int `yaml:"window_minutes"`
}

// ToRequest converts the definition to a creation request at now.
func (s ShipmentDef) ToRequest(now time.Time) (inventory.NewShipment, error) {
	prio, err := model.ParsePriority(s.Priority)
	if err != nil {
		return inventory.NewShipment{}, err
	}
	dir := model.Direction(s.Direction)
	if dir == "" {
		dir = model.DirectionOutbound
	}
	req := inventory.NewShipment{
		TrackingID:    s.TrackingID,
		SKU:           s.SKU,
		Quantity:      s.Quantity,
		Direction:     dir,
		Priority:      prio,
		Zone:          s.Zone,
		WarehouseCode: s.Warehouse,
		Weight:        s.Weight,
		Volume:        s.Volume,
		SLATier:       model.SLATier(s.SLATier),
		BatchID:       s.Batch,
	}
	if s.WindowMinutes > 0 {
		req.DeliveryWindow = &model.TimeWindow{Start: now, End: now.Add(time.Duration(s.WindowMinutes) * time.Minute)}
	}
	return req, nil
}

// Step is one action. Exactly one action field is set.
type Step struct {
	Create      *ShipmentDef `yaml:"create,omitempty"`
	AutoAssign  bool         `yaml:"auto_assign,omitempty"`
	AssignBatch *struct {
		Batch  string `yaml:"batch"`
		Driver string `yaml:"driver"`
	} `yaml:"assign_batch,omitempty"`
	Receive *struct {
		TrackingID string `yaml:"tracking_id"`
		Counted    int    `yaml:"counted"`
	} `yaml:"receive,omitempty"`
	Stock   *StockDef `yaml:"stock,omitempty"`
	Advance string    `yaml:"advance,omitempty"`
	Sweep   bool      `yaml:"sweep,omitempty"`
	// Error is the expected error code of the step, empty for success.
	Error string `yaml:"error,omitempty"`
}

type InventoryExpect struct {
	OnHand   int `yaml:"on_hand"`
	Reserved int `yaml:"reserved"`
}

type Expected struct {
	// Statuses maps tracking ids to their final status.
	Statuses map[string]string `yaml:"statuses"`
	// Drivers maps tracking ids to the driver carrying them.
	Drivers map[string]string `yaml:"drivers"`
	// Inventory is keyed by "SKU@WAREHOUSE".
	Inventory map[string]InventoryExpect `yaml:"inventory"`
	Escalated []string                   `yaml:"escalated"`
	MinScore  float64                    `yaml:"min_score"`
}

type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Now         time.Time   `yaml:"now"`
	Drivers     []DriverDef `yaml:"drivers"`
	Stock       []StockDef  `yaml:"stock"`
	Steps       []Step      `yaml:"steps"`
	Expected    Expected    `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	if sc.Now.IsZero() {
		sc.Now = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	}
	return &sc, nil
}
