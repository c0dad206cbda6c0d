package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks shipments. Lower values are served first.
type Priority int

const (
	PriorityExpress  Priority = 1
	PriorityStandard Priority = 2
	PriorityBulk     Priority = 3
)

// Rank returns the sort key of the priority. Unknown priorities rank after BULK.
func (p Priority) Rank() int {
	switch p {
	case PriorityExpress, PriorityStandard, PriorityBulk:
		return int(p)
	default:
		return int(PriorityBulk) + 1
	}
}

// Outranks reports whether p is strictly more urgent than other.
func (p Priority) Outranks(other Priority) bool { return p.Rank() < other.Rank() }

func (p Priority) String() string {
	switch p {
	case PriorityExpress:
		return "EXPRESS"
	case PriorityStandard:
		return "STANDARD"
	case PriorityBulk:
		return "BULK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority converts a priority name to its value.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EXPRESS":
		return PriorityExpress, nil
	case "STANDARD":
		return PriorityStandard, nil
	case "BULK":
		return PriorityBulk, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// Direction tells whether goods enter or leave the warehouse.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == DirectionInbound || d == DirectionOutbound }

// TimeWindow bounds the acceptable delivery time of a shipment.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StatusEntry is one element of a shipment's status history.
type StatusEntry struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Actor  *string   `json:"actor,omitempty"`
	Note   *string   `json:"note,omitempty"`
}

// LocationEntry is one element of a shipment's location history.
type LocationEntry struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Accuracy *float64  `json:"accuracy,omitempty"`
	At       time.Time `json:"at"`
}

// Shipment is a unit of goods moving through the warehouse lifecycle.
type Shipment struct {
	ID               string          `json:"id"`
	TrackingID       string          `json:"tracking_id"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	Direction        Direction       `json:"direction"`
	Priority         Priority        `json:"priority"`
	Zone             string          `json:"zone"`
	WarehouseCode    string          `json:"warehouse_code"`
	Weight           float64         `json:"weight"`
	Volume           float64         `json:"volume"`
	Status           Status          `json:"status"`
	AssignedDriverID *string         `json:"assigned_driver_id,omitempty"`
	Accepted         bool            `json:"accepted"`
	AcceptedAt       *time.Time      `json:"accepted_at,omitempty"`
	BatchID          *string         `json:"batch_id,omitempty"`
	SLATier          SLATier         `json:"sla_tier"`
	SLADeadline      time.Time       `json:"sla_deadline"`
	Escalated        bool            `json:"escalated"`
	DeliveryWindow   *TimeWindow     `json:"delivery_window,omitempty"`
	Reserved         int             `json:"reserved"`
	ReceivedQuantity *int            `json:"received_quantity,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	StatusHistory    []StatusEntry   `json:"status_history"`
	LocationHistory  []LocationEntry `json:"location_history,omitempty"`
}

// AppendStatus sets the status and records it in the history. The entry time
// is clamped so the history stays ordered.
func (s *Shipment) AppendStatus(st Status, at time.Time, actor, note string) {
	if n := len(s.StatusHistory); n > 0 && at.Before(s.StatusHistory[n-1].At) {
		at = s.StatusHistory[n-1].At
	}
	e := StatusEntry{Status: st, At: at}
	if actor != "" {
		e.Actor = &actor
	}
	if note != "" {
		e.Note = &note
	}
	s.Status = st
	s.StatusHistory = append(s.StatusHistory, e)
	s.UpdatedAt = at
}

// PreviousStatus returns the status held before the current one, or the
// current status when the history has a single entry.
func (s *Shipment) PreviousStatus() Status {
	if n := len(s.StatusHistory); n >= 2 {
		return s.StatusHistory[n-2].Status
	}
	return s.Status
}

// Dispatchable reports whether the allocator may consider the shipment.
func (s *Shipment) Dispatchable() bool {
	return s.Direction == DirectionOutbound &&
		(s.Status == StatusPacked || s.Status == StatusReceived) &&
		s.AssignedDriverID == nil
}

// Clone returns a deep copy of the shipment.
func (s *Shipment) Clone() *Shipment {
	if s == nil {
		return nil
	}
	c := *s
	if s.AssignedDriverID != nil {
		v := *s.AssignedDriverID
		c.AssignedDriverID = &v
	}
	if s.AcceptedAt != nil {
		v := *s.AcceptedAt
		c.AcceptedAt = &v
	}
	if s.BatchID != nil {
		v := *s.BatchID
		c.BatchID = &v
	}
	if s.DeliveryWindow != nil {
		v := *s.DeliveryWindow
		c.DeliveryWindow = &v
	}
	if s.ReceivedQuantity != nil {
		v := *s.ReceivedQuantity
		c.ReceivedQuantity = &v
	}
	c.StatusHistory = append([]StatusEntry(nil), s.StatusHistory...)
	c.LocationHistory = append([]LocationEntry(nil), s.LocationHistory...)
	return &c
}

// Less orders shipments by priority rank, then creation time. Tracking ids
// break exact ties so the order is total.
func Less(a, b *Shipment) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.TrackingID < b.TrackingID
}
