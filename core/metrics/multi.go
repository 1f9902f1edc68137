package metrics

// MultiSink fans events out to several sinks. Optional events only reach the
// sinks implementing the matching recorder.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPrediction forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPrediction(ev PredictionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordBenchmark(ev BenchmarkEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BenchmarkRecorder); ok {
			if err := rec.RecordBenchmark(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordTrend(ev TrendEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TrendRecorder); ok {
			if err := rec.RecordTrend(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordAnomalyScan(ev AnomalyScanEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AnomalyScanRecorder); ok {
			if err := rec.RecordAnomalyScan(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordModelActivated(ev ModelActivatedEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ModelActivationRecorder); ok {
			if err := rec.RecordModelActivated(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
