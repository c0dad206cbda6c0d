package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

type invKey struct{ sku, warehouse string }

// MemoryStore is an in-process Store. A single mutex makes every operation
// atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	shipments  map[string]*model.Shipment
	byTracking map[string]string
	drivers    map[string]model.Driver
	inventory  map[invKey]model.InventoryRecord
	dispatches []model.DispatchRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shipments:  map[string]*model.Shipment{},
		byTracking: map[string]string{},
		drivers:    map[string]model.Driver{},
		inventory:  map[invKey]model.InventoryRecord{},
	}
}

func (s *MemoryStore) CreateShipment(_ context.Context, sh *model.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTracking[sh.TrackingID]; ok {
		return apperr.New(apperr.ErrDuplicateShipment, "tracking id %s", sh.TrackingID)
	}
	if sh.ID == "" {
		sh.ID = uuid.NewString()
	}
	if _, ok := s.shipments[sh.ID]; ok {
		return apperr.New(apperr.ErrDuplicateShipment, "shipment %s", sh.ID)
	}
	s.shipments[sh.ID] = sh.Clone()
	s.byTracking[sh.TrackingID] = sh.ID
	return nil
}

func (s *MemoryStore) GetShipment(_ context.Context, id string) (*model.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "shipment %s", id)
	}
	return sh.Clone(), nil
}

func (s *MemoryStore) GetShipmentByTracking(_ context.Context, trackingID string) (*model.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTracking[trackingID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "shipment %s", trackingID)
	}
	return s.shipments[id].Clone(), nil
}

func (s *MemoryStore) ListShipments(_ context.Context, f ShipmentFilter) ([]*model.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*model.Shipment
	for _, sh := range s.shipments {
		if matchShipment(sh, f) {
			res = append(res, sh.Clone())
		}
	}
	sort.Slice(res, func(i, j int) bool { return model.Less(res[i], res[j]) })
	return res, nil
}

//gocyclo:ignore
func matchShipment(sh *model.Shipment, f ShipmentFilter) bool {
	if f.Direction != "" && sh.Direction != f.Direction {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, sh.Status) {
		return false
	}
	if f.SKU != "" && sh.SKU != f.SKU {
		return false
	}
	if f.Warehouse != "" && sh.WarehouseCode != f.Warehouse {
		return false
	}
	if f.Zone != "" && sh.Zone != f.Zone {
		return false
	}
	if f.BatchID != "" && (sh.BatchID == nil || *sh.BatchID != f.BatchID) {
		return false
	}
	if f.DriverID != "" && (sh.AssignedDriverID == nil || *sh.AssignedDriverID != f.DriverID) {
		return false
	}
	if f.Unassigned && sh.AssignedDriverID != nil {
		return false
	}
	if f.NotEscalated && sh.Escalated {
		return false
	}
	if !f.DeadlineBefore.IsZero() && !sh.SLADeadline.Before(f.DeadlineBefore) {
		return false
	}
	return true
}

func containsStatus(list []model.Status, st model.Status) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

func (s *MemoryStore) TransitionShipment(_ context.Context, t Transition) (*model.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[t.ShipmentID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "shipment %s", t.ShipmentID)
	}
	if !containsStatus(t.From, sh.Status) {
		return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s is %s", sh.TrackingID, sh.Status)
	}
	sh.AppendStatus(t.To, t.At, t.Actor, t.Note)
	if t.Reserved != nil {
		sh.Reserved = *t.Reserved
	}
	if t.Received != nil {
		v := *t.Received
		sh.ReceivedQuantity = &v
	}
	if t.ClearDriver {
		sh.AssignedDriverID = nil
	}
	return sh.Clone(), nil
}

func (s *MemoryStore) MarkEscalated(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok {
		return false, apperr.New(apperr.ErrNotFound, "shipment %s", id)
	}
	if sh.Escalated {
		return false, nil
	}
	sh.Escalated = true
	sh.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) AppendLocation(_ context.Context, id string, loc model.LocationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shipments[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "shipment %s", id)
	}
	sh.LocationHistory = append(sh.LocationHistory, loc)
	return nil
}

func (s *MemoryStore) SaveDriver(_ context.Context, d model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Shift != nil {
		sw := *d.Shift
		d.Shift = &sw
	}
	s.drivers[d.ID] = d
	return nil
}

func (s *MemoryStore) GetDriver(_ context.Context, id string) (*model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "driver %s", id)
	}
	return &d, nil
}

func (s *MemoryStore) ListDrivers(_ context.Context, f DriverFilter) ([]model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		if f.Zone != "" && d.Zone != f.Zone {
			continue
		}
		if f.AvailableOnly && !d.Available {
			continue
		}
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) AdjustDriverLoad(_ context.Context, id string, weight, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "driver %s", id)
	}
	if err := applyLoad(&d, weight, volume); err != nil {
		return err
	}
	s.drivers[id] = d
	return nil
}

func applyLoad(d *model.Driver, weight, volume float64) error {
	load := d.CurrentLoad + weight
	vol := d.CurrentVolume + volume
	if (weight > 0 && load > d.Capacity) || (volume > 0 && vol > d.EffectiveVolumeCapacity()) {
		return apperr.New(apperr.ErrCapacityExceeded, "driver %s: load %.2f/%.2f volume %.2f/%.2f",
			d.ID, load, d.Capacity, vol, d.EffectiveVolumeCapacity())
	}
	if load < 0 {
		load = 0
	}
	if vol < 0 {
		vol = 0
	}
	d.CurrentLoad, d.CurrentVolume = load, vol
	return nil
}

func (s *MemoryStore) SaveInventory(_ context.Context, rec model.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[invKey{rec.SKU, rec.WarehouseCode}] = rec
	return nil
}

func (s *MemoryStore) GetInventory(_ context.Context, sku, warehouse string) (*model.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inventory[invKey{sku, warehouse}]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "inventory %s@%s", sku, warehouse)
	}
	return &rec, nil
}

func (s *MemoryStore) ListInventory(_ context.Context, f InventoryFilter) ([]model.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.InventoryRecord
	for k, rec := range s.inventory {
		if f.SKU != "" && k.sku != f.SKU {
			continue
		}
		if f.Warehouse != "" && k.warehouse != f.Warehouse {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SKU != res[j].SKU {
			return res[i].SKU < res[j].SKU
		}
		return res[i].WarehouseCode < res[j].WarehouseCode
	})
	return res, nil
}

func (s *MemoryStore) Reserve(_ context.Context, sku, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := invKey{sku, warehouse}
	rec, ok := s.inventory[k]
	if !ok || rec.Available() < qty {
		return apperr.New(apperr.ErrInsufficientStock, "%s@%s: requested %d", sku, warehouse, qty)
	}
	rec.Reserved += qty
	rec.UpdatedAt = time.Now()
	s.inventory[k] = rec
	return nil
}

func (s *MemoryStore) Release(_ context.Context, sku, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := invKey{sku, warehouse}
	rec, ok := s.inventory[k]
	if !ok || rec.Reserved < qty {
		return apperr.New(apperr.ErrConcurrentUpdate, "%s@%s: release %d exceeds reservation", sku, warehouse, qty)
	}
	rec.Reserved -= qty
	rec.UpdatedAt = time.Now()
	s.inventory[k] = rec
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, sku, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := invKey{sku, warehouse}
	rec, ok := s.inventory[k]
	if !ok || rec.Reserved < qty || rec.OnHand < qty {
		return apperr.New(apperr.ErrConcurrentUpdate, "%s@%s: consume %d exceeds reservation", sku, warehouse, qty)
	}
	rec.Reserved -= qty
	rec.OnHand -= qty
	rec.UpdatedAt = time.Now()
	s.inventory[k] = rec
	return nil
}

func (s *MemoryStore) Receive(_ context.Context, sku, warehouse string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := invKey{sku, warehouse}
	rec := s.inventory[k]
	rec.SKU, rec.WarehouseCode = sku, warehouse
	rec.OnHand += qty
	rec.UpdatedAt = time.Now()
	s.inventory[k] = rec
	return nil
}

func (s *MemoryStore) SetConflict(_ context.Context, sku, warehouse string, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := invKey{sku, warehouse}
	rec, ok := s.inventory[k]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "inventory %s@%s", sku, warehouse)
	}
	rec.Conflict = flag
	s.inventory[k] = rec
	return nil
}

func (s *MemoryStore) CommitAssignment(_ context.Context, a Assignment) ([]*model.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[a.DriverID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "driver %s", a.DriverID)
	}
	var weight, volume float64
	for _, id := range a.ShipmentIDs {
		sh, ok := s.shipments[id]
		if !ok {
			return nil, apperr.New(apperr.ErrNotFound, "shipment %s", id)
		}
		if !sh.Dispatchable() {
			return nil, apperr.New(apperr.ErrConcurrentUpdate, "shipment %s is %s", sh.TrackingID, sh.Status)
		}
		weight += sh.Weight
		volume += sh.Volume
	}
	if err := applyLoad(&d, weight, volume); err != nil {
		return nil, err
	}
	s.drivers[d.ID] = d
	out := make([]*model.Shipment, 0, len(a.ShipmentIDs))
	for _, id := range a.ShipmentIDs {
		sh := s.shipments[id]
		drv := a.DriverID
		sh.AssignedDriverID = &drv
		sh.AppendStatus(model.StatusDispatched, a.At, "", a.Method)
		s.dispatches = append(s.dispatches, model.DispatchRecord{
			ID:           uuid.NewString(),
			ShipmentID:   sh.ID,
			TrackingID:   sh.TrackingID,
			DriverID:     a.DriverID,
			Method:       a.Method,
			Status:       model.StatusDispatched,
			DispatchedAt: a.At,
			UpdatedAt:    a.At,
		})
		out = append(out, sh.Clone())
	}
	return out, nil
}

func (s *MemoryStore) ListDispatches(_ context.Context, f DispatchFilter) ([]model.DispatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.DispatchRecord
	for _, r := range s.dispatches {
		if f.DriverID != "" && r.DriverID != f.DriverID {
			continue
		}
		if f.ShipmentID != "" && r.ShipmentID != f.ShipmentID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (s *MemoryStore) UpdateDispatchStatus(_ context.Context, shipmentID string, st model.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.dispatches {
		if s.dispatches[i].ShipmentID == shipmentID {
			s.dispatches[i].Status = st
			s.dispatches[i].UpdatedAt = at
			found = true
		}
	}
	if !found {
		return apperr.New(apperr.ErrNotFound, "dispatch record for shipment %s", shipmentID)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
