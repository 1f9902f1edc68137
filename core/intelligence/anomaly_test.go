package intelligence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalJobs(n int) []JobOutcome {
	jobs := make([]JobOutcome, n)
	for i := range jobs {
		m := 19.0
		if i%2 == 1 {
			m = 21
		}
		jobs[i] = job(fmt.Sprintf("b%d", i), m, nil)
	}
	return jobs
}

func TestAnomalySmallBaseline(t *testing.T) {
	src := &fakeSource{
		baseline: normalJobs(9),
		recent:   []JobOutcome{job("x", -150, ptr(99999))},
	}
	rep, err := NewAnomalyDetector(src, Config{}, nil).ScanRecent(context.Background(), "t", 0)
	require.NoError(t, err)
	assert.True(t, rep.InsufficientBaseline)
	assert.Zero(t, rep.Count())
	assert.Equal(t, 9, rep.BaselineJobs)
	assert.Equal(t, 1, rep.JobsScanned)
	assert.Equal(t, int32(30), src.daysArg.Load())
}

func TestAnomalyMarginOutlier(t *testing.T) {
	outlier := job("bad", -150, nil)
	baseline := append(normalJobs(12), outlier)
	src := &fakeSource{
		baseline: baseline,
		recent:   []JobOutcome{job("ok1", 20, nil), outlier, job("ok2", 21, nil)},
	}
	rep, err := NewAnomalyDetector(src, Config{}, nil).ScanRecent(context.Background(), "t", 14)
	require.NoError(t, err)
	require.False(t, rep.InsufficientBaseline)
	require.Len(t, rep.Anomalies, 1)
	a := rep.Anomalies[0]
	assert.Equal(t, "bad", a.JobID)
	assert.Equal(t, MarginOutlier, a.Kind)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Less(t, a.ZScore, -3.0)
	assert.Equal(t, "Scanned 3 jobs over the last 14 days. Found 1 anomaly (1 high severity).", rep.Summary)
}

func TestScanJobsCostAndProfitable(t *testing.T) {
	base := BaselineStats{N: 20, MeanMargin: 20, StdMargin: 1, MeanCost: 100, StdCost: 10}
	recent := []JobOutcome{
		job("medium-cost", 20, ptr(130)),
		job("high-cost", 20, ptr(140)),
		job("rich", 24, nil),
		job("both", 16.5, ptr(145)),
		job("quiet", 20.5, ptr(120)),
	}
	rep := ScanJobs("t", 30, base, recent, Config{})
	require.Len(t, rep.Anomalies, 5)

	got := make([]string, len(rep.Anomalies))
	for i, a := range rep.Anomalies {
		got[i] = fmt.Sprintf("%s/%s/%s", a.JobID, a.Kind, a.Severity)
	}
	assert.Equal(t, []string{
		"both/cost_spike/high",
		"high-cost/cost_spike/high",
		"both/margin_outlier/high",
		"rich/unusually_profitable/medium",
		"medium-cost/cost_spike/medium",
	}, got)
	assert.Equal(t, 3, rep.HighSeverity())
	assert.Contains(t, rep.Summary, "Found 5 anomalies (3 high severity)")
}

func TestScanJobsZeroDeviation(t *testing.T) {
	base := BaselineStats{N: 15, MeanMargin: 20, MeanCost: 100}
	rep := ScanJobs("t", 30, base, []JobOutcome{job("x", -300, ptr(1e6))}, Config{})
	assert.Empty(t, rep.Anomalies)
	assert.False(t, rep.InsufficientBaseline)
	assert.Contains(t, rep.Summary, "Found 0 anomalies (0 high severity)")
}

func TestComputeBaseline(t *testing.T) {
	b := ComputeBaseline([]JobOutcome{job("a", 10, ptr(100)), job("b", 30, nil), job("c", 20, ptr(300))})
	assert.Equal(t, 3, b.N)
	assert.InDelta(t, 20, b.MeanMargin, 1e-12)
	assert.InDelta(t, 8.16496580927726, b.StdMargin, 1e-9)
	assert.InDelta(t, 200, b.MeanCost, 1e-12)
	assert.InDelta(t, 100, b.StdCost, 1e-12)
	assert.Equal(t, BaselineStats{}, ComputeBaseline(nil))
}

type statsSource struct {
	*fakeSource
	stats BaselineStats
}

func (s statsSource) Baseline(context.Context, string) (BaselineStats, error) { return s.stats, nil }

func TestAnomalyDetectorPrefersPrecomputedBaseline(t *testing.T) {
	src := statsSource{
		fakeSource: &fakeSource{baseline: normalJobs(3), recent: []JobOutcome{job("x", 0, nil)}},
		stats:      BaselineStats{N: 50, MeanMargin: 20, StdMargin: 5},
	}
	rep, err := NewAnomalyDetector(src, Config{}, nil).ScanRecent(context.Background(), "t", 7)
	require.NoError(t, err)
	assert.Equal(t, 50, rep.BaselineJobs)
	require.Len(t, rep.Anomalies, 1)
	assert.Equal(t, SeverityHigh, rep.Anomalies[0].Severity)
}
