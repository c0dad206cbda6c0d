package events

import (
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

// Event names used on the wire.
const (
	NameDispatchAssigned    = "dispatch_assigned"
	NameShipmentCreated     = "shipment_created"
	NameShipmentPreempted   = "shipment_preempted"
	NameShipmentBackordered = "shipment_backordered"
	NameShipmentFulfilled   = "shipment_fulfilled"
	NameConflictDetected    = "conflict_detected"
	NameConflictResolved    = "conflict_resolved"
	NameSLAEscalated        = "sla_escalated"
	NameDeliveryCompleted   = "delivery_completed"
	NameDeliveryException   = "delivery_exception"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// DispatchAssigned is published per shipment committed to a driver.
type DispatchAssigned struct {
	ShipmentID string       `json:"shipment_id"`
	TrackingID string       `json:"tracking_id"`
	DriverID   string       `json:"driver_id"`
	Zone       string       `json:"zone"`
	Priority   string       `json:"priority"`
	From       model.Status `json:"from"`
	To         model.Status `json:"to"`
	Method     string       `json:"method"`
	At         time.Time    `json:"at"`
}

func (DispatchAssigned) EventName() string       { return NameDispatchAssigned }
func (e DispatchAssigned) OccurredAt() time.Time { return e.At }

// ShipmentCreated is published when a shipment is persisted.
type ShipmentCreated struct {
	ShipmentID string          `json:"shipment_id"`
	TrackingID string          `json:"tracking_id"`
	Direction  model.Direction `json:"direction"`
	Status     model.Status    `json:"status"`
	At         time.Time       `json:"at"`
}

func (ShipmentCreated) EventName() string       { return NameShipmentCreated }
func (e ShipmentCreated) OccurredAt() time.Time { return e.At }

// ShipmentPreempted is published for each victim demoted to PENDING.
type ShipmentPreempted struct {
	ShipmentID  string    `json:"shipment_id"`
	TrackingID  string    `json:"tracking_id"`
	PreemptedBy string    `json:"preempted_by"`
	SKU         string    `json:"sku"`
	Warehouse   string    `json:"warehouse"`
	Released    int       `json:"released"`
	At          time.Time `json:"at"`
}

func (ShipmentPreempted) EventName() string       { return NameShipmentPreempted }
func (e ShipmentPreempted) OccurredAt() time.Time { return e.At }

// ShipmentBackordered is published when an order starts PENDING for lack of stock.
type ShipmentBackordered struct {
	TrackingID string    `json:"tracking_id"`
	SKU        string    `json:"sku"`
	Warehouse  string    `json:"warehouse"`
	Requested  int       `json:"requested"`
	Available  int       `json:"available"`
	At         time.Time `json:"at"`
}

func (ShipmentBackordered) EventName() string       { return NameShipmentBackordered }
func (e ShipmentBackordered) OccurredAt() time.Time { return e.At }

// ShipmentFulfilled is published when a PENDING order is promoted to PACKED.
type ShipmentFulfilled struct {
	ShipmentID string    `json:"shipment_id"`
	TrackingID string    `json:"tracking_id"`
	SKU        string    `json:"sku"`
	Warehouse  string    `json:"warehouse"`
	Quantity   int       `json:"quantity"`
	At         time.Time `json:"at"`
}

func (ShipmentFulfilled) EventName() string       { return NameShipmentFulfilled }
func (e ShipmentFulfilled) OccurredAt() time.Time { return e.At }

// ConflictDetected is published per SKU found over-reserved.
type ConflictDetected struct {
	SKU           string    `json:"sku"`
	Warehouses    []string  `json:"warehouses"`
	TotalOnHand   int       `json:"total_on_hand"`
	TotalReserved int       `json:"total_reserved"`
	At            time.Time `json:"at"`
}

func (ConflictDetected) EventName() string       { return NameConflictDetected }
func (e ConflictDetected) OccurredAt() time.Time { return e.At }

// ConflictResolved is published after a split-brain resolution.
type ConflictResolved struct {
	SKU     string    `json:"sku"`
	Winner  string    `json:"winner"`
	Loser   string    `json:"loser"`
	Demoted bool      `json:"demoted"`
	At      time.Time `json:"at"`
}

func (ConflictResolved) EventName() string       { return NameConflictResolved }
func (e ConflictResolved) OccurredAt() time.Time { return e.At }

// SLAEscalated is published per shipment flagged by the sweeper.
type SLAEscalated struct {
	ShipmentID string        `json:"shipment_id"`
	TrackingID string        `json:"tracking_id"`
	Tier       model.SLATier `json:"tier"`
	Deadline   time.Time     `json:"deadline"`
	At         time.Time     `json:"at"`
}

func (SLAEscalated) EventName() string       { return NameSLAEscalated }
func (e SLAEscalated) OccurredAt() time.Time { return e.At }

// DeliveryCompleted is published when a shipment is delivered.
type DeliveryCompleted struct {
	ShipmentID string    `json:"shipment_id"`
	TrackingID string    `json:"tracking_id"`
	DriverID   string    `json:"driver_id"`
	Weight     float64   `json:"weight"`
	Volume     float64   `json:"volume"`
	At         time.Time `json:"at"`
}

func (DeliveryCompleted) EventName() string       { return NameDeliveryCompleted }
func (e DeliveryCompleted) OccurredAt() time.Time { return e.At }

// DeliveryException is published when a delivery fails and the shipment is returned.
type DeliveryException struct {
	ShipmentID string    `json:"shipment_id"`
	TrackingID string    `json:"tracking_id"`
	DriverID   string    `json:"driver_id"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

func (DeliveryException) EventName() string       { return NameDeliveryException }
func (e DeliveryException) OccurredAt() time.Time { return e.At }
