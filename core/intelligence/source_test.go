package intelligence

import (
	"context"
	"sync/atomic"
	"time"
)

type fakeSource struct {
	perf       TenantPerformance
	assets     int
	peers      []PeerAverage
	weeks      []WeekRow
	baseline   []JobOutcome
	recent     []JobOutcome
	err        error
	peerCalls  atomic.Int32
	seriesArgs atomic.Int32
	daysArg    atomic.Int32
}

func (f *fakeSource) TenantPerformance(context.Context, string) (TenantPerformance, error) {
	return f.perf, f.err
}

func (f *fakeSource) ActiveAssetCount(context.Context, string) (int, error) { return f.assets, nil }

func (f *fakeSource) PeerAverages(context.Context, SizeBucket) ([]PeerAverage, error) {
	f.peerCalls.Add(1)
	return f.peers, nil
}

func (f *fakeSource) WeeklySeries(_ context.Context, _ string, weeks int) ([]WeekRow, error) {
	f.seriesArgs.Store(int32(weeks))
	return f.weeks, nil
}

func (f *fakeSource) BaselineJobs(context.Context, string) ([]JobOutcome, error) {
	return f.baseline, nil
}

func (f *fakeSource) RecentJobs(_ context.Context, _ string, days int) ([]JobOutcome, error) {
	f.daysArg.Store(int32(days))
	return f.recent, nil
}

func weekly(margins []float64, jobs int) []WeekRow {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	rows := make([]WeekRow, len(margins))
	for i, m := range margins {
		rows[i] = WeekRow{WeekStart: start.AddDate(0, 0, 7*i), JobCount: jobs, AvgMarginPct: m, Revenue: 1000}
	}
	return rows
}

func job(id string, margin float64, cost *float64) JobOutcome {
	return JobOutcome{JobID: id, MarginPct: margin, TotalCost: cost, CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
}

func ptr(v float64) *float64 { return &v }
