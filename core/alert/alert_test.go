package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestFromTrend(t *testing.T) {
	_, ok := FromTrend("t1", intelligence.TrendResult{Trend: intelligence.TrendImproving, Confidence: intelligence.ConfidenceHigh, AlertMessage: "up"}, now)
	assert.False(t, ok, "informational messages are not alerts")

	a, ok := FromTrend("t1", intelligence.TrendResult{
		Trend:        intelligence.TrendDeclining,
		Confidence:   intelligence.ConfidenceMedium,
		Alert:        true,
		AlertMessage: "margins declining",
	}, now)
	require.True(t, ok)
	assert.Equal(t, Alert{TenantID: "t1", Kind: KindTrend, Severity: "medium", Message: "margins declining", Time: now}, a)

	a, _ = FromTrend("t1", intelligence.TrendResult{Confidence: intelligence.ConfidenceHigh, Alert: true}, now)
	assert.Equal(t, "high", a.Severity)
}

func TestFromAnomaliesKeepsHighSeverity(t *testing.T) {
	report := intelligence.AnomalyReport{
		TenantID: "t1",
		Anomalies: []intelligence.Anomaly{
			{JobID: "j1", Kind: intelligence.CostSpike, Severity: intelligence.SeverityHigh, Description: "cost"},
			{JobID: "j2", Kind: intelligence.UnusuallyProfitable, Severity: intelligence.SeverityMedium},
			{JobID: "j3", Kind: intelligence.MarginOutlier, Severity: intelligence.SeverityHigh, Description: "margin"},
		},
	}
	alerts := FromAnomalies(report, now)
	require.Len(t, alerts, 2)
	assert.Equal(t, "j1", alerts[0].JobID)
	assert.Equal(t, "j3", alerts[1].JobID)
	assert.Equal(t, KindAnomaly, alerts[1].Kind)
	assert.Equal(t, "t1", alerts[1].TenantID)

	assert.Empty(t, FromAnomalies(intelligence.AnomalyReport{}, now))
}
