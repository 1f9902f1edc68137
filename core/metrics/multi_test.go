package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	predictions int
	trends      int
}

func (r *recordSink) RecordPrediction(PredictionEvent) error {
	r.predictions++
	return nil
}

func (r *recordSink) RecordTrend(TrendEvent) error {
	r.trends++
	return nil
}

type failingSink struct{}

func (failingSink) RecordPrediction(PredictionEvent) error { return errors.New("down") }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordPrediction(PredictionEvent{Path: "fallback"}); err != nil {
		t.Fatalf("record prediction: %v", err)
	}
	if err := m.RecordTrend(TrendEvent{Trend: "flat"}); err != nil {
		t.Fatalf("record trend: %v", err)
	}
	if err := m.RecordAnomalyScan(AnomalyScanEvent{}); err != nil {
		t.Fatalf("record scan: %v", err)
	}
	if s1.predictions != 1 || s2.predictions != 1 || s1.trends != 1 || s2.trends != 1 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	s := &recordSink{}
	m := NewMultiSink(failingSink{}, s)
	if err := m.RecordPrediction(PredictionEvent{}); err == nil {
		t.Fatal("expected error")
	}
	if s.predictions != 0 {
		t.Fatal("sink after failure should not be called")
	}
}
