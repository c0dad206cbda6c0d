package metrics

import "testing"

type recordSink struct {
	count int
}

func (r *recordSink) RecordDispatchPass(PassEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordReservation(ReservationEvent) error {
	r.count++
	return nil
}

// passOnly implements no optional recorder.
type passOnly struct{ count int }

func (p *passOnly) RecordDispatchPass(PassEvent) error {
	p.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	p := &passOnly{}
	m := NewMultiSink(s1, s2, p)
	if err := m.RecordDispatchPass(PassEvent{}); err != nil {
		t.Fatalf("record pass: %v", err)
	}
	if err := m.RecordReservation(ReservationEvent{Outcome: OutcomeReserved}); err != nil {
		t.Fatalf("record reservation: %v", err)
	}
	if err := m.RecordEscalation(EscalationEvent{}); err != nil {
		t.Fatalf("record escalation: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("results not forwarded")
	}
	if p.count != 1 {
		t.Fatalf("pass-only sink got %d records", p.count)
	}
}
