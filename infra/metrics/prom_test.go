package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
)

func TestPromSink_RecordPrediction(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	ev := coremetrics.PredictionEvent{Path: "fallback", Risk: "low", Recommendation: "accept", MarginPct: 44.6, Time: time.Now()}
	require.NoError(t, sink.RecordPrediction(ev))
	require.NoError(t, sink.RecordPrediction(ev))

	expected := `
# HELP fleetintel_predictions_total Scored jobs by prediction path, risk tier and recommendation
# TYPE fleetintel_predictions_total counter
fleetintel_predictions_total{path="fallback",recommendation="accept",risk="low"} 2
`
	if err := testutil.CollectAndCompare(sink.predictions, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(sink.margin))
}

func TestPromSink_IntelligenceEvents(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	pct := 73
	slope := -1.25
	require.NoError(t, sink.RecordBenchmark(coremetrics.BenchmarkEvent{TenantID: "t1", Bucket: "medium", Percentile: &pct}))
	require.NoError(t, sink.RecordBenchmark(coremetrics.BenchmarkEvent{TenantID: "t2", Bucket: "small"}))
	require.NoError(t, sink.RecordTrend(coremetrics.TrendEvent{TenantID: "t1", Slope: &slope, Alert: true}))
	require.NoError(t, sink.RecordAnomalyScan(coremetrics.AnomalyScanEvent{
		TenantID: "t1",
		Scanned:  30,
		ByKind:   map[string]int{"cost_spike": 2},
	}))

	assert.Equal(t, 73.0, testutil.ToFloat64(sink.percentile.WithLabelValues("t1", "medium")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.percentile), "unranked tenants are not exported")
	assert.Equal(t, -1.25, testutil.ToFloat64(sink.slope.WithLabelValues("t1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.trendAlerts.WithLabelValues("t1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.anomalies.WithLabelValues("t1", "cost_spike")))
	assert.Equal(t, 30.0, testutil.ToFloat64(sink.scanned.WithLabelValues("t1")))
}

func TestPromSink_ModelInfoKeepsOnlyActive(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)

	require.NoError(t, sink.RecordModelActivated(coremetrics.ModelActivatedEvent{Version: "v1", Kind: "linear", TrainR2: 0.8}))
	require.NoError(t, sink.RecordModelActivated(coremetrics.ModelActivatedEvent{Version: "v2", Kind: "linear", TrainR2: 0.9}))

	assert.Equal(t, 1, testutil.CollectAndCount(sink.model))
	assert.Equal(t, 0.9, testutil.ToFloat64(sink.model.WithLabelValues("v2", "linear")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordPrediction(coremetrics.PredictionEvent{Path: "trained", Risk: "high", Recommendation: "reject"}))
	require.NoError(t, b.RecordPrediction(coremetrics.PredictionEvent{Path: "trained", Risk: "high", Recommendation: "reject"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.predictions.WithLabelValues("trained", "high", "reject")))
}
