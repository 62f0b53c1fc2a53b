package metrics

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCompletion forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordCompletion(ev CompletionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCompletion(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordReplan forwards replan events to the sinks that support them.
func (m *MultiSink) RecordReplan(ev ReplanEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReplanRecorder); ok {
			if err := rec.RecordReplan(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordActorState forwards actor snapshots.
func (m *MultiSink) RecordActorState(ev ActorStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ActorStateRecorder); ok {
			if err := rec.RecordActorState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunSummary forwards the run summary.
func (m *MultiSink) RecordRunSummary(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunSummaryRecorder); ok {
			if err := rec.RecordRunSummary(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
