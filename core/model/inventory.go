package model

import "time"

// InventoryRecord holds stock for one SKU in one warehouse.
type InventoryRecord struct {
	SKU           string    `json:"sku"`
	WarehouseCode string    `json:"warehouse_code"`
	OnHand        int       `json:"on_hand"`
	Reserved      int       `json:"reserved"`
	Conflict      bool      `json:"conflict"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Available returns the quantity that can still be reserved.
func (r InventoryRecord) Available() int { return r.OnHand - r.Reserved }

// DispatchRecord links a shipment to the driver carrying it.
type DispatchRecord struct {
	ID           string    `json:"id"`
	ShipmentID   string    `json:"shipment_id"`
	TrackingID   string    `json:"tracking_id"`
	DriverID     string    `json:"driver_id"`
	Method       string    `json:"method"`
	Status       Status    `json:"status"`
	DispatchedAt time.Time `json:"dispatched_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Assignment methods recorded on dispatch records and events.
const (
	MethodAutoAssign  = "auto-assign"
	MethodBatchAssign = "batch-assign"
)
