// Package events defines the domain events emitted on the event bus.
//
// Operations publish events synchronously once their writes succeed; the
// relay and metrics collector consume them asynchronously.
//
// Available event types:
//   - DispatchAssigned: a shipment was committed to a driver
//   - ShipmentCreated: a shipment entered the system
//   - ShipmentPreempted: a reservation was taken by a higher priority order
//   - ShipmentBackordered: an outbound order could not be covered by stock
//   - ShipmentFulfilled: a pending order was promoted after replenishment
//   - ConflictDetected, ConflictResolved: split-brain inventory handling
//   - SLAEscalated: a shipment passed its SLA deadline
//   - DeliveryCompleted, DeliveryException: delivery outcomes
package events
