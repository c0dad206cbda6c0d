package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchPass forwards the pass to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatchPass(ev PassEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatchPass(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignments forwards assignments when supported by the sink.
func (m *MultiSink) RecordAssignments(evs []AssignmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			if err := rec.RecordAssignments(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReservation forwards reservation decisions.
func (m *MultiSink) RecordReservation(ev ReservationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReservationRecorder); ok {
			if err := rec.RecordReservation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordConflict forwards conflict events.
func (m *MultiSink) RecordConflict(ev ConflictEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ConflictRecorder); ok {
			if err := rec.RecordConflict(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordEscalation forwards escalations.
func (m *MultiSink) RecordEscalation(ev EscalationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EscalationRecorder); ok {
			if err := rec.RecordEscalation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDelivery forwards delivery outcomes.
func (m *MultiSink) RecordDelivery(ev DeliveryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DeliveryRecorder); ok {
			if err := rec.RecordDelivery(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordEvent forwards bus events.
func (m *MultiSink) RecordEvent(ev DomainEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(EventRecorder); ok {
			if err := rec.RecordEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
