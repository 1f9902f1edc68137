package intelligence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetintel/core/logger"
)

type AnomalyKind string

const (
	MarginOutlier       AnomalyKind = "margin_outlier"
	UnusuallyProfitable AnomalyKind = "unusually_profitable"
	CostSpike           AnomalyKind = "cost_spike"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Z-score thresholds.
const (
	MarginZ     = 2.0
	MarginHighZ = 3.0
	CostZ       = 2.5
	CostHighZ   = 3.5
)

type Anomaly struct {
	JobID       string      `json:"job_id"`
	Kind        AnomalyKind `json:"anomaly_type"`
	Severity    Severity    `json:"severity"`
	ZScore      float64     `json:"z_score"`
	Value       float64     `json:"actual_value"`
	Mean        float64     `json:"fleet_mean"`
	StdDev      float64     `json:"fleet_stddev"`
	Description string      `json:"description"`
	Origin      string      `json:"origin,omitempty"`
	Destination string      `json:"destination,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type AnomalyReport struct {
	TenantID             string    `json:"fleet_id"`
	DaysScanned          int       `json:"days_scanned"`
	JobsScanned          int       `json:"n_jobs_scanned"`
	Anomalies            []Anomaly `json:"anomalies"`
	BaselineJobs         int       `json:"baseline_jobs_count"`
	InsufficientBaseline bool      `json:"insufficient_baseline"`
	Summary              string    `json:"summary"`
}

// Count returns the number of flagged anomalies.
func (r AnomalyReport) Count() int { return len(r.Anomalies) }

// HighSeverity counts high severity anomalies.
func (r AnomalyReport) HighSeverity() int {
	n := 0
	for _, a := range r.Anomalies {
		if a.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// BaselineStats are population statistics over a tenant's qualifying jobs.
type BaselineStats struct {
	N          int
	MeanMargin float64
	StdMargin  float64
	MeanCost   float64
	StdCost    float64
}

// ComputeBaseline derives BaselineStats from jobs. Cost statistics only use
// jobs with a known cost.
func ComputeBaseline(jobs []JobOutcome) BaselineStats {
	if len(jobs) == 0 {
		return BaselineStats{}
	}
	margins := make([]float64, len(jobs))
	costs := make([]float64, 0, len(jobs))
	for i, j := range jobs {
		margins[i] = j.MarginPct
		if j.TotalCost != nil {
			costs = append(costs, *j.TotalCost)
		}
	}
	b := BaselineStats{N: len(jobs)}
	b.MeanMargin, b.StdMargin = stat.PopMeanStdDev(margins, nil)
	if len(costs) > 0 {
		b.MeanCost, b.StdCost = stat.PopMeanStdDev(costs, nil)
	}
	return b
}

// AnomalyDetector scores recent jobs against the tenant's own baseline.
type AnomalyDetector struct {
	src AnomalySource
	cfg Config
	log logger.Logger
}

func NewAnomalyDetector(src AnomalySource, cfg Config, log logger.Logger) *AnomalyDetector {
	cfg.SetDefaults()
	return &AnomalyDetector{src: src, cfg: cfg, log: logger.OrNop(log)}
}

// ScanRecent scans the last days of tenant's jobs. days <= 0 uses the
// configured default.
func (d *AnomalyDetector) ScanRecent(ctx context.Context, tenant string, days int) (AnomalyReport, error) {
	if days <= 0 {
		days = d.cfg.AnomalyDays
	}
	base, err := d.baseline(ctx, tenant)
	if err != nil {
		return AnomalyReport{}, fmt.Errorf("anomalies %s: baseline: %w", tenant, err)
	}
	recent, err := d.src.RecentJobs(ctx, tenant, days)
	if err != nil {
		return AnomalyReport{}, fmt.Errorf("anomalies %s: recent jobs: %w", tenant, err)
	}
	rep := ScanJobs(tenant, days, base, recent, d.cfg)
	d.log.Debugf("anomalies %s: %d of %d jobs flagged", tenant, rep.Count(), rep.JobsScanned)
	return rep, nil
}

func (d *AnomalyDetector) baseline(ctx context.Context, tenant string) (BaselineStats, error) {
	if bs, ok := d.src.(BaselineSource); ok {
		return bs.Baseline(ctx, tenant)
	}
	jobs, err := d.src.BaselineJobs(ctx, tenant)
	if err != nil {
		return BaselineStats{}, err
	}
	return ComputeBaseline(jobs), nil
}

// ScanJobs flags outliers in recent against base. A margin Z-score is skipped
// when the margin deviation is zero, a cost Z-score when the job has no cost
// or the cost deviation is zero.
func ScanJobs(tenant string, days int, base BaselineStats, recent []JobOutcome, cfg Config) AnomalyReport {
	cfg.SetDefaults()
	rep := AnomalyReport{
		TenantID:     tenant,
		DaysScanned:  days,
		JobsScanned:  len(recent),
		BaselineJobs: base.N,
		Anomalies:    []Anomaly{},
	}
	if base.N < cfg.MinBaselineJobs {
		rep.InsufficientBaseline = true
		rep.Summary = fmt.Sprintf("Baseline too small (%d jobs). Need at least %d accepted/completed jobs before anomaly detection is reliable.",
			base.N, cfg.MinBaselineJobs)
		return rep
	}

	for _, j := range recent {
		if base.StdMargin > 0 {
			z := (j.MarginPct - base.MeanMargin) / base.StdMargin
			if math.Abs(z) > MarginZ {
				a := Anomaly{
					JobID:       j.JobID,
					ZScore:      round(z, 2),
					Value:       j.MarginPct,
					Mean:        round(base.MeanMargin, 2),
					StdDev:      round(base.StdMargin, 2),
					Origin:      j.Origin,
					Destination: j.Destination,
					CreatedAt:   j.CreatedAt,
				}
				if z < 0 {
					a.Kind = MarginOutlier
					a.Severity = SeverityMedium
					if math.Abs(z) > MarginHighZ {
						a.Severity = SeverityHigh
					}
					a.Description = fmt.Sprintf("Margin of %.1f%% is %.1f std devs below your fleet average (%.1f%%). Review cost inputs or rate negotiation for this route.",
						j.MarginPct, math.Abs(z), base.MeanMargin)
				} else {
					a.Kind = UnusuallyProfitable
					a.Severity = SeverityMedium
					a.Description = fmt.Sprintf("Margin of %.1f%% is %.1f std devs above your fleet average (%.1f%%). This route may be an opportunity to replicate.",
						j.MarginPct, z, base.MeanMargin)
				}
				rep.Anomalies = append(rep.Anomalies, a)
			}
		}

		if j.TotalCost != nil && base.StdCost > 0 {
			cost := *j.TotalCost
			z := (cost - base.MeanCost) / base.StdCost
			if z > CostZ {
				sev := SeverityMedium
				if z > CostHighZ {
					sev = SeverityHigh
				}
				rep.Anomalies = append(rep.Anomalies, Anomaly{
					JobID:    j.JobID,
					Kind:     CostSpike,
					Severity: sev,
					ZScore:   round(z, 2),
					Value:    round(cost, 2),
					Mean:     round(base.MeanCost, 2),
					StdDev:   round(base.StdCost, 2),
					Description: fmt.Sprintf("Total cost of %.0f is %.1f std devs above your fleet average (%.0f). Investigate unexpected fuel, toll, or maintenance costs.",
						cost, z, base.MeanCost),
					Origin:      j.Origin,
					Destination: j.Destination,
					CreatedAt:   j.CreatedAt,
				})
			}
		}
	}

	sort.SliceStable(rep.Anomalies, func(i, k int) bool {
		a, b := rep.Anomalies[i], rep.Anomalies[k]
		if (a.Severity == SeverityHigh) != (b.Severity == SeverityHigh) {
			return a.Severity == SeverityHigh
		}
		return math.Abs(a.ZScore) > math.Abs(b.ZScore)
	})

	n := rep.Count()
	noun := "anomalies"
	if n == 1 {
		noun = "anomaly"
	}
	rep.Summary = fmt.Sprintf("Scanned %d jobs over the last %d days. Found %d %s (%d high severity).",
		len(recent), days, n, noun, rep.HighSeverity())
	return rep
}
