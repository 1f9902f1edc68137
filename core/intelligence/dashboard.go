package intelligence

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetintel/core/logger"
)

type BenchmarkDigest struct {
	Percentile       *int     `json:"fleet_percentile"`
	AvgMarginPct     float64  `json:"avg_margin_pct"`
	MarginDelta      *float64 `json:"margin_vs_industry"`
	InsufficientData bool     `json:"insufficient_data"`
	TopInsight       string   `json:"top_insight,omitempty"`
}

type TrendDigest struct {
	Trend        TrendDirection `json:"trend"`
	Slope        *float64       `json:"slope_pct_per_week"`
	Confidence   Confidence     `json:"confidence"`
	Alert        bool           `json:"alert"`
	AlertMessage string         `json:"alert_message,omitempty"`
	Summary      string         `json:"summary"`
}

type AnomalyDigest struct {
	Count                int      `json:"n_anomalies"`
	HighSeverity         int      `json:"high_severity"`
	InsufficientBaseline bool     `json:"insufficient_baseline"`
	Summary              string   `json:"summary"`
	Top                  *Anomaly `json:"top_anomaly,omitempty"`
}

// DashboardSummary condenses the three reports for one tenant.
type DashboardSummary struct {
	Benchmark BenchmarkDigest `json:"benchmark"`
	Trend     TrendDigest     `json:"trend"`
	Anomalies AnomalyDigest   `json:"anomalies"`
}

// Reports holds the full reports behind a DashboardSummary.
type Reports struct {
	Benchmark BenchmarkResult
	Trend     TrendResult
	Anomalies AnomalyReport
}

// Dashboard runs the three services together.
type Dashboard struct {
	bench   *Benchmarker
	trend   *TrendDetector
	anomaly *AnomalyDetector
	cfg     Config
}

func NewDashboard(src Source, cfg Config, log logger.Logger) *Dashboard {
	cfg.SetDefaults()
	return &Dashboard{
		bench:   NewBenchmarker(src, cfg, log),
		trend:   NewTrendDetector(src, cfg, log),
		anomaly: NewAnomalyDetector(src, cfg, log),
		cfg:     cfg,
	}
}

// Reports computes the benchmark, the dashboard-length trend and the default
// anomaly scan concurrently. The first failure cancels the others.
func (d *Dashboard) Reports(ctx context.Context, tenant string) (Reports, error) {
	var r Reports
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Benchmark, err = d.bench.Benchmark(gctx, tenant)
		return err
	})
	g.Go(func() error {
		var err error
		r.Trend, err = d.trend.Detect(gctx, tenant, d.cfg.DashboardTrendWeeks)
		return err
	})
	g.Go(func() error {
		var err error
		r.Anomalies, err = d.anomaly.ScanRecent(gctx, tenant, d.cfg.AnomalyDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return Reports{}, err
	}
	return r, nil
}

// Summary returns the condensed view of Reports.
func (d *Dashboard) Summary(ctx context.Context, tenant string) (DashboardSummary, error) {
	r, err := d.Reports(ctx, tenant)
	if err != nil {
		return DashboardSummary{}, err
	}
	return r.Digest(), nil
}

// Digest condenses r.
func (r Reports) Digest() DashboardSummary {
	s := DashboardSummary{
		Benchmark: BenchmarkDigest{
			Percentile:       r.Benchmark.Percentile,
			AvgMarginPct:     r.Benchmark.Fleet.AvgMarginPct,
			MarginDelta:      r.Benchmark.MarginDelta,
			InsufficientData: r.Benchmark.InsufficientData,
		},
		Trend: TrendDigest{
			Trend:        r.Trend.Trend,
			Slope:        r.Trend.Slope,
			Confidence:   r.Trend.Confidence,
			Alert:        r.Trend.Alert,
			AlertMessage: r.Trend.AlertMessage,
			Summary:      r.Trend.Summary,
		},
		Anomalies: AnomalyDigest{
			Count:                r.Anomalies.Count(),
			HighSeverity:         r.Anomalies.HighSeverity(),
			InsufficientBaseline: r.Anomalies.InsufficientBaseline,
			Summary:              r.Anomalies.Summary,
		},
	}
	if len(r.Benchmark.Insights) > 0 {
		s.Benchmark.TopInsight = r.Benchmark.Insights[0]
	}
	if len(r.Anomalies.Anomalies) > 0 {
		top := r.Anomalies.Anomalies[0]
		s.Anomalies.Top = &top
	}
	return s
}
