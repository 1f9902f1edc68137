package metrics

import "time"

// PredictionEvent is one scored job.
type PredictionEvent struct {
	TenantID       string
	Path           string
	ModelVersion   string
	Risk           string
	Recommendation string
	MarginPct      float64
	NetProfit      float64
	Time           time.Time
}

// MetricsSink records predictions for observability purposes.
type MetricsSink interface {
	RecordPrediction(ev PredictionEvent) error
}

// BenchmarkEvent summarises a benchmark run. Percentile is nil when the
// tenant could not be ranked.
type BenchmarkEvent struct {
	TenantID    string
	Bucket      string
	Percentile  *int
	MarginDelta *float64
	Time        time.Time
}

// BenchmarkRecorder records benchmark runs.
type BenchmarkRecorder interface {
	RecordBenchmark(ev BenchmarkEvent) error
}

// TrendEvent summarises a trend analysis.
type TrendEvent struct {
	TenantID   string
	Trend      string
	Confidence string
	Slope      *float64
	R2         *float64
	Alert      bool
	Time       time.Time
}

// TrendRecorder records trend analyses.
type TrendRecorder interface {
	RecordTrend(ev TrendEvent) error
}

// AnomalyScanEvent summarises an anomaly scan.
type AnomalyScanEvent struct {
	TenantID     string
	Scanned      int
	ByKind       map[string]int
	HighSeverity int
	Insufficient bool
	Time         time.Time
}

// AnomalyScanRecorder records anomaly scans.
type AnomalyScanRecorder interface {
	RecordAnomalyScan(ev AnomalyScanEvent) error
}

// ModelActivatedEvent marks a registry swap.
type ModelActivatedEvent struct {
	Version         string
	Kind            string
	TrainingSamples int
	TrainR2         float64
	Time            time.Time
}

// ModelActivationRecorder records model activations.
type ModelActivationRecorder interface {
	RecordModelActivated(ev ModelActivatedEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error { return nil }

func (NopSink) RecordBenchmark(BenchmarkEvent) error           { return nil }
func (NopSink) RecordTrend(TrendEvent) error                   { return nil }
func (NopSink) RecordAnomalyScan(AnomalyScanEvent) error       { return nil }
func (NopSink) RecordModelActivated(ModelActivatedEvent) error { return nil }
