package intelligence

import (
	"context"
	"time"
)

// SizeBucket groups tenants by active asset count.
type SizeBucket string

const (
	BucketSmall  SizeBucket = "small"
	BucketMedium SizeBucket = "medium"
	BucketLarge  SizeBucket = "large"
)

// BucketFor maps an active asset count to its bucket: up to 2 is small, 3 to
// 10 medium, 11 and more large.
func BucketFor(assets int) SizeBucket {
	switch {
	case assets <= 2:
		return BucketSmall
	case assets <= 10:
		return BucketMedium
	default:
		return BucketLarge
	}
}

// AssetRange returns the inclusive asset count bounds of b. max is -1 for an
// unbounded bucket.
func (b SizeBucket) AssetRange() (min, max int) {
	switch b {
	case BucketSmall:
		return 1, 2
	case BucketMedium:
		return 3, 10
	default:
		return 11, -1
	}
}

// TenantPerformance aggregates a tenant's qualifying jobs.
type TenantPerformance struct {
	JobCount     int     `json:"job_count"`
	AvgMarginPct float64 `json:"avg_margin_pct"`
	AvgNetProfit float64 `json:"avg_net_profit"`
	AvgRatePerKM float64 `json:"avg_rate_per_km"`
	AvgCostPerKM float64 `json:"avg_cost_per_km"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalProfit  float64 `json:"total_profit"`
}

// PeerAverage is one peer tenant's own averages. It carries no identity.
type PeerAverage struct {
	MarginPct float64
	RatePerKM float64
	CostPerKM float64
}

// BenchmarkSource supplies the data behind a benchmark.
type BenchmarkSource interface {
	TenantPerformance(ctx context.Context, tenant string) (TenantPerformance, error)
	ActiveAssetCount(ctx context.Context, tenant string) (int, error)
	PeerAverages(ctx context.Context, bucket SizeBucket) ([]PeerAverage, error)
}

// IndustrySource is implemented by benchmark sources able to return a
// precomputed IndustryContext. A nil context means no data. The peer floor is
// still checked on use.
type IndustrySource interface {
	IndustryContext(ctx context.Context, bucket SizeBucket) (*IndustryContext, error)
}

// WeekRow is one week of a tenant's qualifying jobs.
type WeekRow struct {
	WeekStart    time.Time
	JobCount     int
	AvgMarginPct float64
	AvgNetProfit float64
	Revenue      float64
}

// TrendSource supplies weekly series, oldest week first.
type TrendSource interface {
	WeeklySeries(ctx context.Context, tenant string, weeks int) ([]WeekRow, error)
}

// JobOutcome is a job as seen by the anomaly scan. TotalCost is nil when the
// cost is not known.
type JobOutcome struct {
	JobID       string
	Origin      string
	Destination string
	MarginPct   float64
	TotalCost   *float64
	CreatedAt   time.Time
}

// AnomalySource supplies a tenant's baseline and its recent jobs.
type AnomalySource interface {
	BaselineJobs(ctx context.Context, tenant string) ([]JobOutcome, error)
	RecentJobs(ctx context.Context, tenant string, days int) ([]JobOutcome, error)
}

// BaselineSource is implemented by anomaly sources able to compute the
// baseline statistics themselves.
type BaselineSource interface {
	Baseline(ctx context.Context, tenant string) (BaselineStats, error)
}

// Source bundles every collaborator the dashboard needs.
type Source interface {
	BenchmarkSource
	TrendSource
	AnomalySource
}
