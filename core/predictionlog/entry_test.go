package predictionlog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/model"
	"github.com/kilianp07/fleetintel/core/prediction"
)

var now = time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)

func entry(t *testing.T, predicted float64) Entry {
	t.Helper()
	in := model.JobInput{Route: model.Route{DistanceKM: 100, DurationHours: 2}}
	r := prediction.Result{NetProfit: predicted, TotalCost: 1000 - predicted, MarginPct: predicted / 10,
		Risk: prediction.RiskLow, Recommendation: prediction.Accept, Importances: map[string]float64{"fuel_cost_raw": 1}}
	return NewEntry("t1", "job", features.Build(in), 1000, r, now)
}

func TestNewEntrySnapshots(t *testing.T) {
	e := entry(t, 200)
	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Len(t, e.Features, features.Len)
	assert.Equal(t, 100.0, e.Features["distance_km"])
	assert.Equal(t, "low", e.Risk)
	assert.False(t, e.UsedModel)
	assert.False(t, e.Resolved())
}

func TestResolveActuals(t *testing.T) {
	e := entry(t, 200)
	r := e.ResolveActuals(150, 850, 1000, now)
	require.True(t, r.Resolved())
	assert.False(t, e.Resolved(), "original entry must not change")
	assert.Equal(t, 15.0, *r.ActualMarginPct)
	assert.Equal(t, -50.0, *r.ProfitError)
	assert.InDelta(t, -33.333, *r.ProfitErrorPct, 1e-3)
	assert.Equal(t, 50.0, *r.AbsProfitError)

	z := e.ResolveActuals(0, 1000, 0, now)
	assert.Zero(t, *z.ProfitErrorPct)
	assert.Zero(t, *z.ActualMarginPct)
}

func TestSummarize(t *testing.T) {
	es := []Entry{
		entry(t, 200).ResolveActuals(210, 790, 1000, now),
		entry(t, 100).ResolveActuals(80, 920, 1000, now),
		entry(t, 300),
	}
	s := Summarize(es)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, 15.0, s.MAE)
	assert.Equal(t, 15.81, s.RMSE)
	// (10/210*100 + -20/80*100)/2
	assert.Equal(t, -10.12, s.AvgErrorPct)
	assert.Equal(t, 15.0, s.AvgPredictedMargin)
	assert.Equal(t, 14.5, s.AvgActualMargin)
	assert.Contains(t, s.Interpret(), "Good accuracy across 2 jobs")
	assert.False(t, s.Drifting())
}

func TestInterpretThresholds(t *testing.T) {
	assert.Contains(t, AccuracySummary{}.Interpret(), "No resolved predictions")
	assert.Contains(t, AccuracySummary{N: 3, AvgErrorPct: -4.9}.Interpret(), "Excellent")
	assert.Contains(t, AccuracySummary{N: 3, AvgErrorPct: 14}.Interpret(), "Good")
	drift := AccuracySummary{N: 3, AvgErrorPct: -22}
	assert.Contains(t, drift.Interpret(), "Model drift detected")
	assert.True(t, drift.Drifting())
}

func TestQueryMatch(t *testing.T) {
	e := entry(t, 1)
	assert.True(t, Query{}.Match(e))
	assert.False(t, Query{TenantID: "other"}.Match(e))
	assert.False(t, Query{ResolvedOnly: true}.Match(e))
	assert.False(t, Query{Since: now.Add(time.Hour)}.Match(e))
	assert.True(t, Query{Since: now}.Match(e))
}
