package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

func TestWriteTrendHTML(t *testing.T) {
	var buf bytes.Buffer
	r := intelligence.TrendResult{
		Summary: "Margin is stable",
		DataPoints: []intelligence.TrendDataPoint{
			{WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), JobCount: 7, AvgMarginPct: 12.5},
			{WeekStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), JobCount: 6, AvgMarginPct: 13},
		},
	}
	require.NoError(t, WriteTrendHTML(&buf, "t1", r))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "2026-03-09")
	assert.Contains(t, html, "Weekly margin t1")
}
