// Package store declares the persistence operations used by the engines.
// Implementations must apply Reserve, Release, Consume, AdjustDriverLoad,
// TransitionShipment and CommitAssignment atomically (conditional updates,
// not read-modify-write in application memory).
package store

import (
	"context"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

// ShipmentFilter selects shipments. Zero fields do not filter.
type ShipmentFilter struct {
	Direction      model.Direction
	Statuses       []model.Status
	SKU            string
	Warehouse      string
	Zone           string
	BatchID        string
	DriverID       string
	Unassigned     bool
	NotEscalated   bool
	DeadlineBefore time.Time
}

// DriverFilter selects drivers.
type DriverFilter struct {
	Zone          string
	AvailableOnly bool
}

// InventoryFilter selects inventory records.
type InventoryFilter struct {
	SKU       string
	Warehouse string
}

// DispatchFilter selects dispatch records.
type DispatchFilter struct {
	DriverID   string
	ShipmentID string
	Statuses   []model.Status
}

// Transition is a conditional status change: it applies only while the
// shipment is in one of From.
type Transition struct {
	ShipmentID string
	From       []model.Status
	To         model.Status
	At         time.Time
	Actor      string
	Note       string
	// Reserved replaces the shipment's reserved quantity when set.
	Reserved *int
	// Received records the counted quantity of an inbound receipt when set.
	Received *int
	// ClearDriver removes the assigned driver reference.
	ClearDriver bool
}

// Assignment commits a batch of shipments to one driver.
type Assignment struct {
	DriverID    string
	ShipmentIDs []string
	Method      string
	At          time.Time
}

// ShipmentStore persists shipments.
type ShipmentStore interface {
	// CreateShipment fails with apperr.ErrDuplicateShipment when the tracking id exists.
	CreateShipment(ctx context.Context, s *model.Shipment) error
	GetShipment(ctx context.Context, id string) (*model.Shipment, error)
	GetShipmentByTracking(ctx context.Context, trackingID string) (*model.Shipment, error)
	// ListShipments returns matches ordered by priority rank then creation time.
	ListShipments(ctx context.Context, f ShipmentFilter) ([]*model.Shipment, error)
	// TransitionShipment fails with apperr.ErrConcurrentUpdate when the
	// shipment is no longer in one of t.From.
	TransitionShipment(ctx context.Context, t Transition) (*model.Shipment, error)
	// MarkEscalated sets the escalation flag and reports whether it changed.
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
	AppendLocation(ctx context.Context, id string, loc model.LocationEntry) error
}

// DriverStore persists drivers.
type DriverStore interface {
	SaveDriver(ctx context.Context, d model.Driver) error
	GetDriver(ctx context.Context, id string) (*model.Driver, error)
	// ListDrivers returns matches ordered by id.
	ListDrivers(ctx context.Context, f DriverFilter) ([]model.Driver, error)
	// AdjustDriverLoad adds the deltas, failing with apperr.ErrCapacityExceeded
	// if the result would leave [0, capacity].
	AdjustDriverLoad(ctx context.Context, id string, weight, volume float64) error
}

// InventoryStore persists per-warehouse stock.
type InventoryStore interface {
	SaveInventory(ctx context.Context, rec model.InventoryRecord) error
	GetInventory(ctx context.Context, sku, warehouse string) (*model.InventoryRecord, error)
	// ListInventory returns matches ordered by SKU then warehouse.
	ListInventory(ctx context.Context, f InventoryFilter) ([]model.InventoryRecord, error)
	// Reserve fails with apperr.ErrInsufficientStock when on_hand - reserved < qty.
	Reserve(ctx context.Context, sku, warehouse string, qty int) error
	// Release fails with apperr.ErrConcurrentUpdate when reserved < qty.
	Release(ctx context.Context, sku, warehouse string, qty int) error
	// Consume removes qty from both on_hand and reserved.
	Consume(ctx context.Context, sku, warehouse string, qty int) error
	// Receive credits on_hand, creating the record if needed.
	Receive(ctx context.Context, sku, warehouse string, qty int) error
	SetConflict(ctx context.Context, sku, warehouse string, flag bool) error
}

// DispatchStore persists assignments and dispatch records.
type DispatchStore interface {
	// CommitAssignment moves every shipment to DISPATCHED, creates one
	// dispatch record per shipment and increments the driver's load, all or
	// nothing. It returns the updated shipments.
	CommitAssignment(ctx context.Context, a Assignment) ([]*model.Shipment, error)
	ListDispatches(ctx context.Context, f DispatchFilter) ([]model.DispatchRecord, error)
	UpdateDispatchStatus(ctx context.Context, shipmentID string, st model.Status, at time.Time) error
}

// Store groups every persistence concern.
type Store interface {
	ShipmentStore
	DriverStore
	InventoryStore
	DispatchStore
	Close() error
}
