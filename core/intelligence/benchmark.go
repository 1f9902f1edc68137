package intelligence

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/fleetintel/core/logger"
)

// FleetMetrics is a tenant's aggregate with its size classification.
type FleetMetrics struct {
	TenantPerformance
	Bucket     SizeBucket `json:"fleet_size_bucket"`
	AssetCount int        `json:"truck_count"`
}

// BenchmarkResult compares a tenant against its bucket. Percentile and deltas
// are nil when InsufficientData is set.
type BenchmarkResult struct {
	Fleet            FleetMetrics     `json:"fleet_metrics"`
	Industry         *IndustryContext `json:"industry_context"`
	Percentile       *int             `json:"fleet_percentile"`
	MarginDelta      *float64         `json:"margin_vs_industry"`
	RateDelta        *float64         `json:"rate_vs_industry"`
	CostDelta        *float64         `json:"cost_vs_industry"`
	Insights         []string         `json:"insights"`
	InsufficientData bool             `json:"insufficient_data"`
}

// Benchmarker computes tenant-versus-industry reports.
type Benchmarker struct {
	src BenchmarkSource
	cfg Config
	log logger.Logger
}

func NewBenchmarker(src BenchmarkSource, cfg Config, log logger.Logger) *Benchmarker {
	cfg.SetDefaults()
	return &Benchmarker{src: src, cfg: cfg, log: logger.OrNop(log)}
}

// Benchmark builds the report for tenant. A tenant without jobs never
// triggers the cross-tenant query.
func (b *Benchmarker) Benchmark(ctx context.Context, tenant string) (BenchmarkResult, error) {
	perf, err := b.src.TenantPerformance(ctx, tenant)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("benchmark %s: tenant performance: %w", tenant, err)
	}
	assets, err := b.src.ActiveAssetCount(ctx, tenant)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("benchmark %s: asset count: %w", tenant, err)
	}
	fleet := FleetMetrics{TenantPerformance: perf, Bucket: BucketFor(assets), AssetCount: assets}

	if perf.JobCount == 0 {
		return BenchmarkResult{
			Fleet:            fleet,
			Insights:         []string{"No accepted jobs yet. Submit and accept jobs to see benchmark data."},
			InsufficientData: true,
		}, nil
	}

	ic, err := b.industry(ctx, fleet.Bucket)
	if errors.Is(err, ErrInsufficientPeers) {
		b.log.Debugf("benchmark %s: %v", tenant, err)
		return BenchmarkResult{
			Fleet: fleet,
			Insights: []string{fmt.Sprintf(
				"Not enough %s fleets in the dataset for anonymous benchmarking yet. Check back as more fleets join.",
				fleet.Bucket)},
			InsufficientData: true,
		}, nil
	}
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("benchmark %s: %w", tenant, err)
	}

	pct := PercentileRank(perf.AvgMarginPct, ic, b.cfg.Extrapolation())
	margin := round(perf.AvgMarginPct-ic.AvgMarginPct, 2)
	rate := round(perf.AvgRatePerKM-ic.AvgRatePerKM, 3)
	cost := round(perf.AvgCostPerKM-ic.AvgCostPerKM, 3)
	return BenchmarkResult{
		Fleet:       fleet,
		Industry:    &ic,
		Percentile:  &pct,
		MarginDelta: &margin,
		RateDelta:   &rate,
		CostDelta:   &cost,
		Insights:    insights(fleet, ic, pct),
	}, nil
}

// industry resolves the bucket context, preferring a precomputed one.
func (b *Benchmarker) industry(ctx context.Context, bucket SizeBucket) (IndustryContext, error) {
	if is, ok := b.src.(IndustrySource); ok {
		ic, err := is.IndustryContext(ctx, bucket)
		if err != nil {
			return IndustryContext{}, fmt.Errorf("industry context: %w", err)
		}
		if ic == nil || ic.NTenants < MinPeers {
			n := 0
			if ic != nil {
				n = ic.NTenants
			}
			return IndustryContext{}, fmt.Errorf("%s bucket has %d tenants: %w", bucket, n, ErrInsufficientPeers)
		}
		return *ic, nil
	}
	peers, err := b.src.PeerAverages(ctx, bucket)
	if err != nil {
		return IndustryContext{}, fmt.Errorf("peer averages: %w", err)
	}
	return AggregateIndustry(bucket, peers)
}

func insights(f FleetMetrics, ic IndustryContext, pct int) []string {
	var out []string
	switch {
	case pct >= 75:
		out = append(out, fmt.Sprintf("Top-quartile performer: your avg margin of %.1f%% beats %d%% of similar %s fleets.",
			f.AvgMarginPct, pct, f.Bucket))
	case pct >= 50:
		out = append(out, fmt.Sprintf("Above median: %.1f%% margin vs industry median of %.1f%%.",
			f.AvgMarginPct, ic.P50MarginPct))
	case pct >= 25:
		out = append(out, fmt.Sprintf("Below median: margin of %.1f%% is in the 2nd quartile. Industry median is %.1f%%.",
			f.AvgMarginPct, ic.P50MarginPct))
	default:
		out = append(out, fmt.Sprintf("Bottom-quartile: %.1f%% margin. Top quartile starts at %.1f%%. Review pricing or cost controls.",
			f.AvgMarginPct, ic.P75MarginPct))
	}
	if f.AvgCostPerKM > ic.AvgCostPerKM*1.10 {
		out = append(out, fmt.Sprintf("Cost per km (%.3f) is 10%%+ above industry avg (%.3f). Check maintenance and fuel contracts.",
			f.AvgCostPerKM, ic.AvgCostPerKM))
	}
	if f.AvgRatePerKM < ic.AvgRatePerKM*0.90 {
		out = append(out, fmt.Sprintf("Revenue per km (%.3f) is 10%%+ below peers. Consider revising minimum rate thresholds.",
			f.AvgRatePerKM))
	}
	return out
}
