package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/intelligence"
	"github.com/kilianp07/fleetintel/core/predictionlog"
)

func readCSV(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()
	recs, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestWriteTrendCSV(t *testing.T) {
	var buf bytes.Buffer
	r := intelligence.TrendResult{DataPoints: []intelligence.TrendDataPoint{
		{WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), JobCount: 7, AvgMarginPct: 12.5, WeeklyRevenue: 8400},
	}}
	require.NoError(t, WriteTrendCSV(&buf, r))
	assert.Equal(t, [][]string{
		{"week_start", "job_count", "avg_margin_pct", "weekly_revenue"},
		{"2026-03-02", "7", "12.5", "8400"},
	}, readCSV(t, &buf))
}

func TestWriteAnomaliesCSV(t *testing.T) {
	var buf bytes.Buffer
	r := intelligence.AnomalyReport{Anomalies: []intelligence.Anomaly{{
		JobID:       "j1",
		Kind:        intelligence.CostSpike,
		Severity:    intelligence.SeverityHigh,
		ZScore:      3.9,
		Value:       2400,
		Mean:        900,
		StdDev:      380,
		Origin:      "Odense, DK",
		Destination: "Berlin",
		CreatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}}}
	require.NoError(t, WriteAnomaliesCSV(&buf, r))
	recs := readCSV(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"j1", "cost_spike", "high", "3.9", "2400", "900", "380", "Odense, DK", "Berlin", "2026-03-02T10:00:00Z"}, recs[1])
}

func TestWriteBenchmarkCSVInsufficient(t *testing.T) {
	var buf bytes.Buffer
	r := intelligence.BenchmarkResult{InsufficientData: true}
	r.Fleet.Bucket = intelligence.BucketSmall
	require.NoError(t, WriteBenchmarkCSV(&buf, r))
	recs := readCSV(t, &buf)
	assert.Len(t, recs, 11, "no industry rows without a context")
	assert.Equal(t, []string{"fleet_percentile", ""}, recs[7])
}

func TestWritePredictionLogCSV(t *testing.T) {
	profit := 320.0
	entries := []predictionlog.Entry{
		{ID: "a", TenantID: "t1", JobID: "j1", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), OfferedRate: 1000, PredictedNetProfit: 300, PredictedMarginPct: 30, Risk: "low", Recommendation: "accept", ActualNetProfit: &profit},
		{ID: "b", TenantID: "t1", JobID: "j2", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePredictionLogCSV(&buf, entries))
	recs := readCSV(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "320", recs[1][10])
	assert.Equal(t, "", recs[2][10])
}

func TestWriteJSONIsIndented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]int{"n": 1}))
	assert.Equal(t, "{\n  \"n\": 1\n}\n", buf.String())
	var back map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
}
