package intelligence

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetintel/core/logger"
)

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendFlat      TrendDirection = "flat"
	TrendDeclining TrendDirection = "declining"
	TrendUnknown   TrendDirection = "unknown"
)

type Confidence string

const (
	ConfidenceHigh         Confidence = "high"
	ConfidenceMedium       Confidence = "medium"
	ConfidenceLow          Confidence = "low"
	ConfidenceInsufficient Confidence = "insufficient_data"
)

// Classification thresholds, in margin points per week and R².
const (
	SlopeThreshold = 0.3
	HighR2         = 0.35
	MediumR2       = 0.15
	HighConfWeeks  = 8
)

type TrendDataPoint struct {
	WeekStart     time.Time `json:"week_start"`
	AvgMarginPct  float64   `json:"avg_margin_pct"`
	JobCount      int       `json:"job_count"`
	WeeklyRevenue float64   `json:"weekly_revenue"`
}

// TrendResult describes the weekly margin trend. Slope and R2 are nil when
// there were too few qualifying weeks to fit.
type TrendResult struct {
	Trend         TrendDirection   `json:"trend"`
	Slope         *float64         `json:"slope_pct_per_week"`
	R2            *float64         `json:"r2"`
	Confidence    Confidence       `json:"confidence"`
	Alert         bool             `json:"alert"`
	AlertMessage  string           `json:"alert_message,omitempty"`
	WeeksAnalyzed int              `json:"weeks_analyzed"`
	DataPoints    []TrendDataPoint `json:"data_points"`
	Summary       string           `json:"summary"`
}

// TrendDetector fits a line through weekly average margins.
type TrendDetector struct {
	src TrendSource
	cfg Config
	log logger.Logger
}

func NewTrendDetector(src TrendSource, cfg Config, log logger.Logger) *TrendDetector {
	cfg.SetDefaults()
	return &TrendDetector{src: src, cfg: cfg, log: logger.OrNop(log)}
}

// Detect analyses the last weeks of tenant's history. weeks <= 0 uses the
// configured default.
func (d *TrendDetector) Detect(ctx context.Context, tenant string, weeks int) (TrendResult, error) {
	if weeks <= 0 {
		weeks = d.cfg.TrendWeeks
	}
	rows, err := d.src.WeeklySeries(ctx, tenant, weeks)
	if err != nil {
		return TrendResult{}, fmt.Errorf("trend %s: weekly series: %w", tenant, err)
	}
	res := AnalyzeTrend(rows, d.cfg)
	d.log.Debugf("trend %s: %s over %d weeks", tenant, res.Trend, res.WeeksAnalyzed)
	return res, nil
}

// AnalyzeTrend classifies a weekly series. Weeks with fewer than
// cfg.MinJobsPerWeek jobs are ignored.
func AnalyzeTrend(rows []WeekRow, cfg Config) TrendResult {
	cfg.SetDefaults()
	points := make([]TrendDataPoint, 0, len(rows))
	for _, r := range rows {
		if r.JobCount < cfg.MinJobsPerWeek {
			continue
		}
		points = append(points, TrendDataPoint{
			WeekStart:     r.WeekStart,
			AvgMarginPct:  r.AvgMarginPct,
			JobCount:      r.JobCount,
			WeeklyRevenue: r.Revenue,
		})
	}
	n := len(points)
	if n < cfg.MinTrendWeeks {
		return TrendResult{
			Trend:         TrendUnknown,
			Confidence:    ConfidenceInsufficient,
			WeeksAnalyzed: n,
			DataPoints:    points,
			Summary: fmt.Sprintf("Only %d weeks with enough jobs, need at least %d for a reliable trend signal.",
				n, cfg.MinTrendWeeks),
		}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i] = float64(i), p.AvgMarginPct
	}
	slope, r2 := fitLine(xs, ys)
	slope, r2 = round(slope, 3), round(r2, 3)

	trend := TrendFlat
	switch {
	case slope < -SlopeThreshold:
		trend = TrendDeclining
	case slope > SlopeThreshold:
		trend = TrendImproving
	}

	conf := ConfidenceLow
	switch {
	case r2 >= HighR2 && n >= HighConfWeeks:
		conf = ConfidenceHigh
	case r2 >= MediumR2 || n >= cfg.MinTrendWeeks:
		conf = ConfidenceMedium
	}

	res := TrendResult{
		Trend:         trend,
		Slope:         &slope,
		R2:            &r2,
		Confidence:    conf,
		WeeksAnalyzed: n,
		DataPoints:    points,
	}
	latest := points[n-1].AvgMarginPct
	switch {
	case trend == TrendDeclining && (conf == ConfidenceHigh || conf == ConfidenceMedium):
		res.Alert = true
		res.AlertMessage = fmt.Sprintf("Margin declining at %.2f%%/week. Current avg: %.1f%%. Review job acceptance criteria or cost structure.",
			math.Abs(slope), latest)
	case trend == TrendImproving && conf == ConfidenceHigh:
		res.AlertMessage = fmt.Sprintf("Strong margin improvement: +%.2f%%/week over %d weeks.", slope, n)
	}

	word := map[TrendDirection]string{
		TrendImproving: "improving ↑",
		TrendDeclining: "declining ↓",
		TrendFlat:      "stable →",
	}[trend]
	res.Summary = fmt.Sprintf("Profitability trend: %s. Slope: %+.2f%%/week over %d weeks (R²=%.2f).", word, slope, n, r2)
	return res
}

// fitLine returns the OLS slope of ys on xs and R², which is 0 when ys has
// no variance.
func fitLine(xs, ys []float64) (slope, r2 float64) {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	mean := stat.Mean(ys, nil)
	var ssTot, ssRes float64
	for i, y := range ys {
		ssTot += (y - mean) * (y - mean)
		e := y - (alpha + beta*xs[i])
		ssRes += e * e
	}
	if ssTot <= 1e-12 {
		return beta, 0
	}
	return beta, 1 - ssRes/ssTot
}
