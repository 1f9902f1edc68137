package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/intelligence"
	"github.com/kilianp07/fleetintel/core/model"
	coremon "github.com/kilianp07/fleetintel/core/monitoring"
	"github.com/kilianp07/fleetintel/core/predictionlog"
	"github.com/kilianp07/fleetintel/core/regression"
	"github.com/kilianp07/fleetintel/core/registry"
	"github.com/kilianp07/fleetintel/infra/mqtt"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type memSource struct {
	weeks  []intelligence.WeekRow
	recent []intelligence.JobOutcome
	base   []intelligence.JobOutcome
	err    error
}

func (m *memSource) TenantPerformance(context.Context, string) (intelligence.TenantPerformance, error) {
	return intelligence.TenantPerformance{JobCount: 40, AvgMarginPct: 18}, m.err
}

func (m *memSource) ActiveAssetCount(context.Context, string) (int, error) { return 5, nil }

func (m *memSource) PeerAverages(context.Context, intelligence.SizeBucket) ([]intelligence.PeerAverage, error) {
	return []intelligence.PeerAverage{{MarginPct: 10}, {MarginPct: 15}, {MarginPct: 20}, {MarginPct: 25}}, nil
}

func (m *memSource) WeeklySeries(context.Context, string, int) ([]intelligence.WeekRow, error) {
	return m.weeks, nil
}

func (m *memSource) BaselineJobs(context.Context, string) ([]intelligence.JobOutcome, error) {
	return m.base, nil
}

func (m *memSource) RecentJobs(context.Context, string, int) ([]intelligence.JobOutcome, error) {
	return m.recent, nil
}

func decliningSource() *memSource {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	src := &memSource{}
	for i, m := range []float64{30, 29, 28, 27, 26} {
		src.weeks = append(src.weeks, intelligence.WeekRow{WeekStart: start.AddDate(0, 0, 7*i), JobCount: 6, AvgMarginPct: m, Revenue: 1000})
	}
	for i := range 12 {
		src.base = append(src.base, intelligence.JobOutcome{JobID: "b", MarginPct: 20 + float64(i%3)})
	}
	src.recent = []intelligence.JobOutcome{{JobID: "j-bad", MarginPct: -40, CreatedAt: fixedNow}}
	return src
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Registry.Dir = filepath.Join(dir, "models")
	cfg.PredictionLog.Path = filepath.Join(dir, "predictions.jsonl")
	cfg.Intelligence.Tenants = []string{"t1"}
	return cfg
}

func referenceJob() model.JobInput {
	return model.JobInput{
		Route:     model.Route{DistanceKM: 440, DurationHours: 6},
		Economics: model.Economics{OfferedRate: 1200, EnergyPricePerUnit: 1.5},
		Asset: model.AssetProfile{
			ConsumptionPer100: 30,
			MaintenancePerKM:  0.5,
			InsuranceMonthly:  500,
			LeasingMonthly:    1000,
		},
		Driver: model.DriverProfile{HourlyRate: 25, MonthlyFixedCost: 2000},
	}
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithMonitor(coremon.Nop{})}, opts...)
	svc, err := New(t.Context(), testConfig(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestPredictFallbackIsLoggedAndResolvable(t *testing.T) {
	svc := newService(t)

	res, err := svc.Predict(t.Context(), "t1", "job-1", referenceJob(), 1200)
	require.NoError(t, err)
	assert.False(t, res.UsedModel)
	assert.InDelta(t, 44.6, res.MarginPct, 0.1)

	es, err := svc.Logs.Query(t.Context(), predictionlog.Query{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, "job-1", es[0].JobID)
	assert.Equal(t, 1200.0, es[0].OfferedRate)
	assert.Equal(t, fixedNow, es[0].CreatedAt.UTC())

	_, err = svc.Resolve(t.Context(), "job-1", 500, 700, 1200)
	require.NoError(t, err)
	sum, err := svc.Accuracy(t.Context(), predictionlog.Query{TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.N)

	_, err = svc.Resolve(t.Context(), "missing", 1, 1, 1)
	assert.ErrorIs(t, err, predictionlog.ErrNotFound)
}

func TestPredictRejectsInvalidInput(t *testing.T) {
	svc := newService(t)
	in := referenceJob()
	in.Route.DistanceKM = -1
	_, err := svc.Predict(t.Context(), "t1", "job-1", in, 1200)
	assert.Error(t, err)
}

func TestSavedModelServesPredictions(t *testing.T) {
	svc := newService(t)
	width := len(features.Names)
	reg := &regression.LinearRegressor{Intercept: 300, Coef: make([]float64, width)}
	sc := regression.FitStandardScaler([][]float64{features.Build(referenceJob())})

	a, err := svc.Registry.Save(t.Context(), reg, sc, registry.Metadata{TrainingSamples: 60})
	require.NoError(t, err)
	assert.Equal(t, "v1", a.Version)

	res, err := svc.Predict(t.Context(), "t1", "job-2", referenceJob(), 1000)
	require.NoError(t, err)
	assert.True(t, res.UsedModel)
	assert.Equal(t, "v1", res.ModelVersion)
	assert.InDelta(t, 300, res.NetProfit, 1e-9)
	assert.InDelta(t, 30, res.MarginPct, 1e-9)
}

func TestReloadPicksUpVersionsFromAnotherProcess(t *testing.T) {
	cfg := testConfig(t)
	writer, err := New(t.Context(), cfg, WithMonitor(coremon.Nop{}))
	require.NoError(t, err)
	reader, err := New(t.Context(), cfg, WithMonitor(coremon.Nop{}), WithLogStore(memLog{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writer.Close()
		_ = reader.Close()
	})
	assert.False(t, reader.Registry.IsLoaded())

	reg := &regression.LinearRegressor{Coef: make([]float64, len(features.Names))}
	_, err = writer.Registry.Save(t.Context(), reg, regression.IdentityScaler(features.Len), registry.Metadata{})
	require.NoError(t, err)

	reader.reloadIfNewer(t.Context())
	a, ok := reader.Registry.Active()
	require.True(t, ok)
	assert.Equal(t, "v1", a.Version)
}

func TestScanPublishesTrendAndAnomalyAlerts(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc := newService(t, WithSource(decliningSource()), WithPublisher(pub))

	published, err := svc.Scan(t.Context(), "t1")
	require.NoError(t, err)
	got := pub.Published()
	assert.Equal(t, published, got)
	require.NotEmpty(t, got)
	assert.Equal(t, alert.KindTrend, got[0].Kind)
	assert.Equal(t, "t1", got[0].TenantID)
	var anomalies int
	for _, a := range got {
		if a.Kind == alert.KindAnomaly {
			anomalies++
			assert.Equal(t, "j-bad", a.JobID)
		}
	}
	assert.Equal(t, 1, anomalies)
}

func TestScanReportsPublishFailures(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	pub.FailTenants["t1"] = true
	svc := newService(t, WithSource(decliningSource()), WithPublisher(pub))

	published, err := svc.Scan(t.Context(), "t1")
	assert.Error(t, err)
	assert.Empty(t, published)
}

func TestTickCapturesScanErrors(t *testing.T) {
	rec := &coremon.Recorder{}
	src := decliningSource()
	src.err = errors.New("db down")
	svc := newService(t, WithSource(src), WithMonitor(rec))

	svc.tick(t.Context())
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, "t1", rec.Tags[0]["tenant_id"])
}

func TestIntelligenceWithoutSource(t *testing.T) {
	svc := newService(t)
	_, err := svc.Dashboard(t.Context(), "t1")
	assert.ErrorIs(t, err, ErrNoIntelligenceSource)
	_, err = svc.Benchmark(t.Context(), "t1")
	assert.ErrorIs(t, err, ErrNoIntelligenceSource)
	_, err = svc.Trends(t.Context(), "t1", 0)
	assert.ErrorIs(t, err, ErrNoIntelligenceSource)
	_, err = svc.Anomalies(t.Context(), "t1", 0)
	assert.ErrorIs(t, err, ErrNoIntelligenceSource)
}

func TestDashboardSummary(t *testing.T) {
	svc := newService(t, WithSource(decliningSource()))
	sum, err := svc.Dashboard(t.Context(), "t1")
	require.NoError(t, err)
	require.NotNil(t, sum.Benchmark.Percentile)
	assert.Equal(t, string(intelligence.TrendDeclining), string(sum.Trend.Trend))
	assert.Equal(t, 1, sum.Anomalies.HighSeverity)
}

func TestRunReturnsOnCancel(t *testing.T) {
	svc := newService(t, WithSource(decliningSource()), WithPublisher(alert.Nop{}))
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type memLog struct{}

func (memLog) Append(context.Context, predictionlog.Entry) error { return nil }
func (memLog) Resolve(context.Context, string, float64, float64, float64) (predictionlog.Entry, error) {
	return predictionlog.Entry{}, predictionlog.ErrNotFound
}
func (memLog) Query(context.Context, predictionlog.Query) ([]predictionlog.Entry, error) {
	return nil, nil
}
func (memLog) Close() error { return nil }

type closingLog struct {
	memLog
	closed bool
}

func (c *closingLog) Close() error {
	c.closed = true
	return nil
}

type closingPublisher struct {
	alert.Nop
	closed bool
}

func (c *closingPublisher) Close() { c.closed = true }

func TestNewReleasesCollaboratorsOnFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Postgres.DSN = "host=127.0.0.1 port=notaport"
	logs := &closingLog{}
	pub := &closingPublisher{}

	svc, err := New(t.Context(), cfg, WithMonitor(coremon.Nop{}), WithLogStore(logs), WithPublisher(pub))
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.True(t, logs.closed)
	assert.True(t, pub.closed)
}
