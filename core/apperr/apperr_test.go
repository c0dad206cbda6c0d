package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(ErrCapacityExceeded, "driver %s over by %.1f", "d1", 20.0)
	wrapped := fmt.Errorf("assign batch: %w", err)
	if !errors.Is(wrapped, ErrCapacityExceeded) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if errors.Is(wrapped, ErrRegulationViolation) {
		t.Fatal("different code must not match")
	}
	if KindOf(wrapped) != KindPrecondition {
		t.Fatalf("kind %s", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "capacity_exceeded" {
		t.Fatalf("code %s", CodeOf(wrapped))
	}
	if MessageOf(wrapped) != "driver d1 over by 20.0" {
		t.Fatalf("message %q", MessageOf(wrapped))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrConcurrentUpdate, cause, "shipment %s", "s1")
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if err.Error() != "concurrent_update: shipment s1: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("x")) != "" {
		t.Fatal("plain errors have no kind")
	}
	if MessageOf(errors.New("x")) != "x" {
		t.Fatal("plain message fallback")
	}
}
