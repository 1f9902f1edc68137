package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

// WriteTrendHTML renders the weekly margin series as a standalone HTML line
// chart.
func WriteTrendHTML(w io.Writer, tenant string, r intelligence.TrendResult) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Weekly margin " + tenant, Subtitle: r.Summary}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Week"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Avg margin (%)"}),
	)

	xAxis := make([]string, 0, len(r.DataPoints))
	margins := make([]opts.LineData, 0, len(r.DataPoints))
	jobs := make([]opts.LineData, 0, len(r.DataPoints))
	for _, p := range r.DataPoints {
		xAxis = append(xAxis, p.WeekStart.Format(time.DateOnly))
		margins = append(margins, opts.LineData{Value: p.AvgMarginPct})
		jobs = append(jobs, opts.LineData{Value: p.JobCount})
	}
	line.SetXAxis(xAxis).
		AddSeries("Avg margin", margins).
		AddSeries("Jobs", jobs)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render trend chart: %w", err)
	}
	return nil
}
