package metrics

import "time"

// PassEvent summarizes one allocation pass, automatic or manual.
type PassEvent struct {
	PassID      string
	Method      string
	Eligible    int
	Assigned    int
	Unassigned  int
	Score       float64
	Utilization float64
	Duration    time.Duration
	Time        time.Time
}

// MetricsSink records dispatch passes for observability purposes.
type MetricsSink interface {
	RecordDispatchPass(ev PassEvent) error
}

// AssignmentEvent describes one shipment committed to a driver.
type AssignmentEvent struct {
	PassID     string
	ShipmentID string
	TrackingID string
	DriverID   string
	Zone       string
	Priority   string
	Method     string
	Weight     float64
	Volume     float64
	Time       time.Time
}

// AssignmentRecorder records individual assignments.
type AssignmentRecorder interface {
	RecordAssignments(evs []AssignmentEvent) error
}

// Reservation outcomes.
const (
	OutcomeReserved    = "reserved"
	OutcomePreempted   = "preempted"
	OutcomeBackordered = "backordered"
	OutcomeFulfilled   = "fulfilled"
)

// ReservationEvent records the decision taken for an outbound order.
type ReservationEvent struct {
	TrackingID string
	SKU        string
	Warehouse  string
	Outcome    string
	Quantity   int
	Victims    int
	Time       time.Time
}

// ReservationRecorder records reservation decisions.
type ReservationRecorder interface {
	RecordReservation(ev ReservationEvent) error
}

// ConflictEvent records a split-brain detection or resolution.
type ConflictEvent struct {
	SKU           string
	TotalOnHand   int
	TotalReserved int
	Resolved      bool
	Time          time.Time
}

// ConflictRecorder records inventory conflicts.
type ConflictRecorder interface {
	RecordConflict(ev ConflictEvent) error
}

// EscalationEvent records a shipment flagged past its SLA deadline.
type EscalationEvent struct {
	ShipmentID string
	TrackingID string
	DriverID   string
	Tier       string
	Overdue    time.Duration
	Time       time.Time
}

// EscalationRecorder records SLA escalations.
type EscalationRecorder interface {
	RecordEscalation(ev EscalationEvent) error
}

// Delivery outcomes.
const (
	DeliveryDelivered = "delivered"
	DeliveryReturned  = "returned"
)

// DeliveryEvent records the end of a shipment's journey.
type DeliveryEvent struct {
	ShipmentID string
	DriverID   string
	Outcome    string
	Weight     float64
	Time       time.Time
}

// DeliveryRecorder records delivery outcomes.
type DeliveryRecorder interface {
	RecordDelivery(ev DeliveryEvent) error
}

// DomainEvent is the minimal view of a bus event used for counting.
type DomainEvent struct {
	Name string
	Time time.Time
}

// EventRecorder counts domain events observed on the bus.
type EventRecorder interface {
	RecordEvent(ev DomainEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchPass(PassEvent) error        { return nil }
func (NopSink) RecordAssignments([]AssignmentEvent) error { return nil }
func (NopSink) RecordReservation(ReservationEvent) error  { return nil }
func (NopSink) RecordConflict(ConflictEvent) error        { return nil }
func (NopSink) RecordEscalation(EscalationEvent) error    { return nil }
func (NopSink) RecordDelivery(DeliveryEvent) error        { return nil }
func (NopSink) RecordEvent(DomainEvent) error             { return nil }
