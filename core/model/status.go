package model

import "time"

// Status is a shipment lifecycle state.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusReceived       Status = "RECEIVED"
	StatusPacked         Status = "PACKED"
	StatusDispatched     Status = "DISPATCHED"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusReturned       Status = "RETURNED"
	StatusDisputed       Status = "DISPUTED"
)

var transitions = map[Status][]Status{
	StatusPending:        {StatusReceived, StatusPacked, StatusDisputed},
	StatusReceived:       {StatusPacked, StatusDispatched, StatusPending, StatusDisputed},
	StatusPacked:         {StatusDispatched, StatusPending},
	StatusDispatched:     {StatusInTransit},
	StatusInTransit:      {StatusOutForDelivery, StatusDelivered, StatusReturned},
	StatusOutForDelivery: {StatusDelivered, StatusReturned, StatusDisputed},
	StatusDisputed:       {StatusReceived, StatusReturned},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusReturned }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReceived, StatusPacked, StatusDispatched, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusReturned, StatusDisputed:
		return true
	}
	return false
}

// NonTerminalStatuses lists every status a shipment can still leave.
func NonTerminalStatuses() []Status {
	return []Status{StatusPending, StatusReceived, StatusPacked, StatusDispatched,
		StatusInTransit, StatusOutForDelivery, StatusDisputed}
}

// SLATier is a service-level commitment.
type SLATier string

const (
	TierPlatinum SLATier = "PLATINUM"
	TierGold     SLATier = "GOLD"
	TierSilver   SLATier = "SILVER"
	TierBronze   SLATier = "BRONZE"
)

// Offset returns the time allowed before escalation. Unknown tiers use BRONZE.
func (t SLATier) Offset() time.Duration {
	switch t {
	case TierPlatinum:
		return 4 * time.Hour
	case TierGold:
		return 12 * time.Hour
	case TierSilver:
		return 24 * time.Hour
	default:
		return 48 * time.Hour
	}
}

// Normalize maps empty or unknown tiers to BRONZE.
func (t SLATier) Normalize() SLATier {
	switch t {
	case TierPlatinum, TierGold, TierSilver, TierBronze:
		return t
	default:
		return TierBronze
	}
}
