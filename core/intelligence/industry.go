package intelligence

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientPeers is returned when a bucket has fewer than MinPeers
// qualifying tenants.
var ErrInsufficientPeers = errors.New("not enough peer tenants for an anonymous aggregate")

// IndustryContext is the anonymous cross-tenant aggregate of one bucket.
type IndustryContext struct {
	NTenants     int        `json:"n_fleets"`
	Bucket       SizeBucket `json:"fleet_size_bucket"`
	AvgMarginPct float64    `json:"industry_avg_margin_pct"`
	P25MarginPct float64    `json:"p25_margin_pct"`
	P50MarginPct float64    `json:"p50_margin_pct"`
	P75MarginPct float64    `json:"p75_margin_pct"`
	P90MarginPct float64    `json:"p90_margin_pct"`
	AvgRatePerKM float64    `json:"industry_avg_rate_per_km"`
	AvgCostPerKM float64    `json:"industry_avg_cost_per_km"`
}

// AggregateIndustry builds the bucket's IndustryContext from per-tenant
// averages. It refuses to aggregate fewer than MinPeers tenants.
func AggregateIndustry(bucket SizeBucket, peers []PeerAverage) (IndustryContext, error) {
	if len(peers) < MinPeers {
		return IndustryContext{}, fmt.Errorf("%s bucket has %d tenants: %w", bucket, len(peers), ErrInsufficientPeers)
	}
	margins := make([]float64, len(peers))
	rates := make([]float64, len(peers))
	costs := make([]float64, len(peers))
	for i, p := range peers {
		margins[i], rates[i], costs[i] = p.MarginPct, p.RatePerKM, p.CostPerKM
	}
	sort.Float64s(margins)
	return IndustryContext{
		NTenants:     len(peers),
		Bucket:       bucket,
		AvgMarginPct: round(stat.Mean(margins, nil), 2),
		P25MarginPct: round(Percentile(margins, 0.25), 2),
		P50MarginPct: round(Percentile(margins, 0.50), 2),
		P75MarginPct: round(Percentile(margins, 0.75), 2),
		P90MarginPct: round(Percentile(margins, 0.90), 2),
		AvgRatePerKM: round(stat.Mean(rates, nil), 3),
		AvgCostPerKM: round(stat.Mean(costs, nil), 3),
	}, nil
}

// Percentile returns the p quantile of sorted values with linear
// interpolation between closest ranks (h = (n-1)p), the definition used by
// PERCENTILE_CONT.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// PercentileRank places margin among the bucket's breakpoints by piecewise
// linear interpolation. The 0th and 100th points are synthetic, extrapolated
// by extra margin points beyond p25 and p90.
func PercentileRank(margin float64, ic IndustryContext, extra float64) int {
	pts := [...]struct{ pct, val float64 }{
		{0, ic.P25MarginPct - extra},
		{25, ic.P25MarginPct},
		{50, ic.P50MarginPct},
		{75, ic.P75MarginPct},
		{90, ic.P90MarginPct},
		{100, ic.P90MarginPct + extra},
	}
	for i := 0; i < len(pts)-1; i++ {
		lo, hi := pts[i], pts[i+1]
		if margin < lo.val || margin > hi.val {
			continue
		}
		if hi.val == lo.val {
			return int(lo.pct)
		}
		frac := (margin - lo.val) / (hi.val - lo.val)
		return clamp(int(lo.pct+frac*(hi.pct-lo.pct)), 0, 100)
	}
	if margin > pts[len(pts)-1].val {
		return 100
	}
	return 0
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
