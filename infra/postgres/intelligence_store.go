package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

// Jobs count towards benchmarks, trends and baselines once they were accepted
// or completed and carry a margin.
const qualifying = `margin_pct IS NOT NULL AND status IN ('accepted', 'completed')`

// IntelligenceStore serves benchmark, trend and anomaly queries.
type IntelligenceStore struct {
	pool *Pool
	now  func() time.Time
}

// NewIntelligenceStore creates an IntelligenceStore.
func NewIntelligenceStore(pool *Pool) *IntelligenceStore {
	return &IntelligenceStore{pool: pool, now: time.Now}
}

var (
	_ intelligence.Source         = (*IntelligenceStore)(nil)
	_ intelligence.IndustrySource = (*IntelligenceStore)(nil)
	_ intelligence.BaselineSource = (*IntelligenceStore)(nil)
)

func (s *IntelligenceStore) TenantPerformance(ctx context.Context, tenant string) (intelligence.TenantPerformance, error) {
	query := `
		SELECT count(id),
		       coalesce(avg(margin_pct), 0),
		       coalesce(avg(net_profit), 0),
		       coalesce(avg(offered_rate / nullif(distance_km, 0)), 0),
		       coalesce(avg(total_cost / nullif(distance_km, 0)), 0),
		       coalesce(sum(offered_rate), 0),
		       coalesce(sum(net_profit), 0)
		FROM jobs
		WHERE tenant_id = $1::uuid AND ` + qualifying

	var p intelligence.TenantPerformance
	err := s.pool.QueryRow(ctx, query, tenant).Scan(
		&p.JobCount,
		&p.AvgMarginPct,
		&p.AvgNetProfit,
		&p.AvgRatePerKM,
		&p.AvgCostPerKM,
		&p.TotalRevenue,
		&p.TotalProfit,
	)
	if err != nil {
		return intelligence.TenantPerformance{}, fmt.Errorf("tenant performance: %w", err)
	}
	p.AvgMarginPct = round(p.AvgMarginPct, 2)
	p.AvgNetProfit = round(p.AvgNetProfit, 2)
	p.AvgRatePerKM = round(p.AvgRatePerKM, 3)
	p.AvgCostPerKM = round(p.AvgCostPerKM, 3)
	p.TotalRevenue = round(p.TotalRevenue, 2)
	p.TotalProfit = round(p.TotalProfit, 2)
	return p, nil
}

func (s *IntelligenceStore) ActiveAssetCount(ctx context.Context, tenant string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(id) FROM assets WHERE tenant_id = $1::uuid AND is_active`, tenant,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("active asset count: %w", err)
	}
	return n, nil
}

// peerAveragesQuery returns one row of averages per tenant whose active asset
// count falls in [$1, $2]. $2 < 0 means unbounded. Tenant ids never leave the
// query.
const peerAveragesQuery = `
	WITH asset_counts AS (
		SELECT tenant_id, count(id) AS asset_count
		FROM assets
		WHERE is_active
		GROUP BY tenant_id
	)
	SELECT avg(j.margin_pct),
	       coalesce(avg(j.offered_rate / nullif(j.distance_km, 0)), 0),
	       coalesce(avg(j.total_cost / nullif(j.distance_km, 0)), 0)
	FROM jobs j
	JOIN asset_counts a ON a.tenant_id = j.tenant_id
	WHERE j.margin_pct IS NOT NULL
	  AND j.status IN ('accepted', 'completed')
	  AND a.asset_count >= $1::int
	  AND ($2::int < 0 OR a.asset_count <= $2::int)
	GROUP BY j.tenant_id`

func (s *IntelligenceStore) PeerAverages(ctx context.Context, bucket intelligence.SizeBucket) ([]intelligence.PeerAverage, error) {
	lo, hi := bucket.AssetRange()
	rows, err := s.pool.Query(ctx, peerAveragesQuery, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("peer averages: %w", err)
	}
	peers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (intelligence.PeerAverage, error) {
		var p intelligence.PeerAverage
		err := row.Scan(&p.MarginPct, &p.RatePerKM, &p.CostPerKM)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("peer averages: %w", err)
	}
	return peers, nil
}

// IndustryContext computes the bucket percentiles in SQL with PERCENTILE_CONT.
// It returns nil below the peer floor.
func (s *IntelligenceStore) IndustryContext(ctx context.Context, bucket intelligence.SizeBucket) (*intelligence.IndustryContext, error) {
	lo, hi := bucket.AssetRange()
	query := `
		WITH per_tenant AS (` + peerAveragesQuery + `)
		SELECT count(*),
		       coalesce(avg(m), 0),
		       coalesce(percentile_cont(0.25) WITHIN GROUP (ORDER BY m), 0),
		       coalesce(percentile_cont(0.50) WITHIN GROUP (ORDER BY m), 0),
		       coalesce(percentile_cont(0.75) WITHIN GROUP (ORDER BY m), 0),
		       coalesce(percentile_cont(0.90) WITHIN GROUP (ORDER BY m), 0),
		       coalesce(avg(r), 0),
		       coalesce(avg(c), 0)
		FROM per_tenant AS t(m, r, c)`

	ic := intelligence.IndustryContext{Bucket: bucket}
	err := s.pool.QueryRow(ctx, query, lo, hi).Scan(
		&ic.NTenants,
		&ic.AvgMarginPct,
		&ic.P25MarginPct,
		&ic.P50MarginPct,
		&ic.P75MarginPct,
		&ic.P90MarginPct,
		&ic.AvgRatePerKM,
		&ic.AvgCostPerKM,
	)
	if err != nil {
		return nil, fmt.Errorf("industry context: %w", err)
	}
	if ic.NTenants < intelligence.MinPeers {
		return nil, nil
	}
	ic.AvgMarginPct = round(ic.AvgMarginPct, 2)
	ic.P25MarginPct = round(ic.P25MarginPct, 2)
	ic.P50MarginPct = round(ic.P50MarginPct, 2)
	ic.P75MarginPct = round(ic.P75MarginPct, 2)
	ic.P90MarginPct = round(ic.P90MarginPct, 2)
	ic.AvgRatePerKM = round(ic.AvgRatePerKM, 3)
	ic.AvgCostPerKM = round(ic.AvgCostPerKM, 3)
	return &ic, nil
}

// WeeklySeries groups the last weeks of qualifying jobs by ISO week, oldest
// first.
func (s *IntelligenceStore) WeeklySeries(ctx context.Context, tenant string, weeks int) ([]intelligence.WeekRow, error) {
	since := s.now().UTC().AddDate(0, 0, -7*weeks)
	query := `
		SELECT date_trunc('week', created_at) AS week_start,
		       count(id),
		       avg(margin_pct),
		       coalesce(avg(net_profit), 0),
		       coalesce(sum(offered_rate), 0)
		FROM jobs
		WHERE tenant_id = $1::uuid AND created_at >= $2 AND ` + qualifying + `
		GROUP BY week_start
		ORDER BY week_start ASC`

	rows, err := s.pool.Query(ctx, query, tenant, since)
	if err != nil {
		return nil, fmt.Errorf("weekly series: %w", err)
	}
	series, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (intelligence.WeekRow, error) {
		var w intelligence.WeekRow
		err := row.Scan(&w.WeekStart, &w.JobCount, &w.AvgMarginPct, &w.AvgNetProfit, &w.Revenue)
		w.AvgMarginPct = round(w.AvgMarginPct, 2)
		w.AvgNetProfit = round(w.AvgNetProfit, 2)
		w.Revenue = round(w.Revenue, 2)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("weekly series: %w", err)
	}
	return series, nil
}

// Baseline computes the tenant's margin and cost statistics with stddev_pop.
// Jobs without a cost only contribute to the margin statistics.
func (s *IntelligenceStore) Baseline(ctx context.Context, tenant string) (intelligence.BaselineStats, error) {
	query := `
		SELECT count(id),
		       coalesce(avg(margin_pct), 0),
		       coalesce(stddev_pop(margin_pct), 0),
		       coalesce(avg(total_cost), 0),
		       coalesce(stddev_pop(total_cost), 0)
		FROM jobs
		WHERE tenant_id = $1::uuid AND ` + qualifying

	var b intelligence.BaselineStats
	err := s.pool.QueryRow(ctx, query, tenant).Scan(&b.N, &b.MeanMargin, &b.StdMargin, &b.MeanCost, &b.StdCost)
	if err != nil {
		return intelligence.BaselineStats{}, fmt.Errorf("baseline: %w", err)
	}
	return b, nil
}

func (s *IntelligenceStore) BaselineJobs(ctx context.Context, tenant string) ([]intelligence.JobOutcome, error) {
	query := `
		SELECT id::text, origin, destination, margin_pct, total_cost, created_at
		FROM jobs
		WHERE tenant_id = $1::uuid AND ` + qualifying
	return s.jobs(ctx, "baseline jobs", query, tenant)
}

// RecentJobs returns jobs of the last days with a margin, newest first. Unlike
// the baseline it does not filter on status.
func (s *IntelligenceStore) RecentJobs(ctx context.Context, tenant string, days int) ([]intelligence.JobOutcome, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	query := `
		SELECT id::text, origin, destination, margin_pct, total_cost, created_at
		FROM jobs
		WHERE tenant_id = $1::uuid AND created_at >= $2 AND margin_pct IS NOT NULL
		ORDER BY created_at DESC`
	return s.jobs(ctx, "recent jobs", query, tenant, since)
}

func (s *IntelligenceStore) jobs(ctx context.Context, op, query string, args ...any) ([]intelligence.JobOutcome, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (intelligence.JobOutcome, error) {
		var j intelligence.JobOutcome
		err := row.Scan(&j.JobID, &j.Origin, &j.Destination, &j.MarginPct, &j.TotalCost, &j.CreatedAt)
		return j, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
