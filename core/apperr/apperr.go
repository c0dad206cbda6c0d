// Package apperr defines the error taxonomy shared by the allocation,
// reservation and reconciliation engines. Every error carries a Kind and a
// stable Code; errors.Is matches on the code so sentinels can be compared
// against errors enriched with context.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition"
	KindConflict     Kind = "conflict"
)

// Error is a typed engine error.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return e.Code + ": " + e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return e.Code
	}
}

// Is matches errors with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the stable code, letting adapters tag logs and reports
// without importing this package.
func (e *Error) ErrorCode() string { return e.Code }

var (
	ErrValidation          = &Error{Kind: KindValidation, Code: "validation_failed"}
	ErrNotFound            = &Error{Kind: KindNotFound, Code: "not_found"}
	ErrNoEligibleShipments = &Error{Kind: KindPrecondition, Code: "no_eligible_shipments"}
	ErrCapacityExceeded    = &Error{Kind: KindPrecondition, Code: "capacity_exceeded"}
	ErrRegulationViolation = &Error{Kind: KindPrecondition, Code: "regulation_violation"}
	ErrTimeWindowConflict  = &Error{Kind: KindPrecondition, Code: "time_window_conflict"}
	ErrDisputeActive       = &Error{Kind: KindPrecondition, Code: "dispute_active"}
	ErrDriverUnavailable   = &Error{Kind: KindPrecondition, Code: "driver_unavailable"}
	ErrZoneMismatch        = &Error{Kind: KindPrecondition, Code: "zone_mismatch"}
	ErrIneligibleShipment  = &Error{Kind: KindPrecondition, Code: "ineligible_shipment"}
	ErrInvalidTransition   = &Error{Kind: KindPrecondition, Code: "invalid_transition"}
	ErrSplitBrain          = &Error{Kind: KindConflict, Code: "split_brain"}
	ErrConcurrentUpdate    = &Error{Kind: KindConflict, Code: "concurrent_update"}
	ErrInsufficientStock   = &Error{Kind: KindConflict, Code: "insufficient_stock"}
	ErrDuplicateShipment   = &Error{Kind: KindConflict, Code: "duplicate_shipment"}
)

// New returns an error of the same kind and code as base with a formatted message.
func New(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap is like New but keeps cause in the chain.
func Wrap(base *Error, cause error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the message of the first *Error in err's chain, falling
// back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
