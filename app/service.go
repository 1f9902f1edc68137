// Package app wires the configured stores, services and publishers into a
// runnable Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fleetintel/app/plugins"
	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/core/events"
	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/intelligence"
	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
	"github.com/kilianp07/fleetintel/core/model"
	coremon "github.com/kilianp07/fleetintel/core/monitoring"
	"github.com/kilianp07/fleetintel/core/prediction"
	"github.com/kilianp07/fleetintel/core/predictionlog"
	"github.com/kilianp07/fleetintel/core/registry"
	"github.com/kilianp07/fleetintel/infra/artifacts"
	"github.com/kilianp07/fleetintel/infra/logger"
	"github.com/kilianp07/fleetintel/infra/metrics"
	"github.com/kilianp07/fleetintel/infra/monitoring"
	"github.com/kilianp07/fleetintel/infra/postgres"
	"github.com/kilianp07/fleetintel/internal/eventbus"
)

// ErrNoIntelligenceSource is returned by the intelligence operations when no
// database is configured.
var ErrNoIntelligenceSource = errors.New("intelligence source not configured")

// Option overrides a collaborator built from the configuration.
type Option func(*Service)

// WithSource replaces the Postgres source.
func WithSource(src intelligence.Source) Option { return func(s *Service) { s.source = src } }

// WithLogStore replaces the configured prediction log store.
func WithLogStore(st predictionlog.Store) Option { return func(s *Service) { s.Logs = st } }

// WithPublisher replaces the configured alert publisher.
func WithPublisher(p alert.Publisher) Option { return func(s *Service) { s.alerts = p } }

// WithSink replaces the configured metrics sink.
func WithSink(sink coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = sink } }

// WithMonitor replaces the Sentry monitor.
func WithMonitor(m coremon.Monitor) Option { return func(s *Service) { s.mon = m } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// Service owns the model registry, the prediction engine and the tenant
// intelligence services.
type Service struct {
	Registry *registry.Registry
	Engine   *prediction.Engine
	Logs     predictionlog.Store

	cfg       *config.Config
	log       logger.Logger
	mon       coremon.Monitor
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.MetricsSink
	alerts    alert.Publisher
	pool      *postgres.Pool
	source    intelligence.Source
	bench     *intelligence.Benchmarker
	trend     *intelligence.TrendDetector
	anomaly   *intelligence.AnomalyDetector
	dashboard *intelligence.Dashboard
	now       func() time.Time
}

// New creates a Service from the configuration. The latest complete model is
// loaded when one exists; otherwise predictions use the fallback path.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	s := &Service{
		cfg: cfg,
		log: logger.New("service"),
		bus: eventbus.New[events.Event](),
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if s.mon == nil {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, err
		}
		s.mon = mon
	}
	store, err := artifacts.NewFSStore(cfg.Registry.Dir)
	if err != nil {
		return nil, fmt.Errorf("model store: %w", err)
	}
	s.Registry = registry.New(store, logger.New("registry"), registry.WithActivationHook(func(m registry.Metadata) {
		s.bus.Publish(events.ModelActivated{Metadata: m, Time: s.now()})
	}))
	s.Engine = prediction.NewEngine(s.Registry, logger.New("prediction"))

	// fail releases whatever was built before err.
	fail := func(err error) (*Service, error) {
		_ = s.release()
		return nil, err
	}
	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return fail(fmt.Errorf("metrics sink: %w", err))
		}
		s.sink = sink
	}
	if s.Logs == nil {
		st, err := plugins.NewLogStore(cfg.PredictionLog)
		if err != nil {
			return fail(fmt.Errorf("prediction log: %w", err))
		}
		s.Logs = st
	}
	if s.alerts == nil {
		p, err := plugins.NewPublisher(cfg.MQTT)
		if err != nil {
			return fail(fmt.Errorf("alert publisher: %w", err))
		}
		s.alerts = p
	}
	if s.source == nil && cfg.Postgres.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fail(err)
		}
		s.pool = pool
		if cfg.Postgres.Migrate {
			if err := pool.Migrate(ctx); err != nil {
				return fail(err)
			}
		}
		s.source = postgres.NewIntelligenceStore(pool)
	}
	if s.source != nil {
		icfg := cfg.Intelligence.Config
		s.bench = intelligence.NewBenchmarker(s.source, icfg, logger.New("benchmark"))
		s.trend = intelligence.NewTrendDetector(s.source, icfg, logger.New("trend"))
		s.anomaly = intelligence.NewAnomalyDetector(s.source, icfg, logger.New("anomaly"))
		s.dashboard = intelligence.NewDashboard(s.source, icfg, logger.New("dashboard"))
	}

	// Collect before the first load so its activation is recorded.
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	s.Registry.LoadLatest(ctx)
	return s, nil
}

// Events exposes the service event bus.
func (s *Service) Events() eventbus.EventBus[events.Event] { return s.bus }

// Predict scores a job at rate, logs the prediction and publishes it. A
// failing log store does not fail the prediction.
func (s *Service) Predict(ctx context.Context, tenant, jobID string, in model.JobInput, rate float64) (prediction.Result, error) {
	if err := in.Validate(); err != nil {
		return prediction.Result{}, fmt.Errorf("predict %s: %w", jobID, err)
	}
	res := s.Engine.Predict(in, rate)
	now := s.now()

	in.Economics.OfferedRate = rate
	entry := predictionlog.NewEntry(tenant, jobID, features.Build(in), rate, res, now)
	if err := s.Logs.Append(ctx, entry); err != nil {
		s.log.Errorf("prediction log append %s: %v", jobID, err)
		s.mon.CaptureException(err, map[string]string{"tenant_id": tenant, "op": "log_append"})
	}
	s.bus.Publish(events.PredictionMade{TenantID: tenant, JobID: jobID, Result: res, Time: now})
	return res, nil
}

// Resolve records the realised outcome of jobID.
func (s *Service) Resolve(ctx context.Context, jobID string, actualProfit, actualCost, rate float64) (predictionlog.Entry, error) {
	e, err := s.Logs.Resolve(ctx, jobID, actualProfit, actualCost, rate)
	if err != nil {
		return predictionlog.Entry{}, fmt.Errorf("resolve %s: %w", jobID, err)
	}
	return e, nil
}

// Accuracy summarises the resolved entries matching q.
func (s *Service) Accuracy(ctx context.Context, q predictionlog.Query) (predictionlog.AccuracySummary, error) {
	q.ResolvedOnly = true
	es, err := s.Logs.Query(ctx, q)
	if err != nil {
		return predictionlog.AccuracySummary{}, fmt.Errorf("accuracy: %w", err)
	}
	return predictionlog.Summarize(es), nil
}

// Benchmark ranks tenant against its size bucket.
func (s *Service) Benchmark(ctx context.Context, tenant string) (intelligence.BenchmarkResult, error) {
	if s.bench == nil {
		return intelligence.BenchmarkResult{}, ErrNoIntelligenceSource
	}
	r, err := s.bench.Benchmark(ctx, tenant)
	if err != nil {
		return r, err
	}
	s.bus.Publish(events.BenchmarkComputed{TenantID: tenant, Result: r, Time: s.now()})
	return r, nil
}

// Trends analyses the last weeks of tenant. weeks <= 0 uses the configured
// default.
func (s *Service) Trends(ctx context.Context, tenant string, weeks int) (intelligence.TrendResult, error) {
	if s.trend == nil {
		return intelligence.TrendResult{}, ErrNoIntelligenceSource
	}
	if weeks <= 0 {
		weeks = s.cfg.Intelligence.TrendWeeks
	}
	r, err := s.trend.Detect(ctx, tenant, weeks)
	if err != nil {
		return r, err
	}
	s.bus.Publish(events.TrendDetected{TenantID: tenant, Result: r, Time: s.now()})
	return r, nil
}

// Anomalies scans the last days of tenant. days <= 0 uses the configured
// default.
func (s *Service) Anomalies(ctx context.Context, tenant string, days int) (intelligence.AnomalyReport, error) {
	if s.anomaly == nil {
		return intelligence.AnomalyReport{}, ErrNoIntelligenceSource
	}
	if days <= 0 {
		days = s.cfg.Intelligence.AnomalyDays
	}
	r, err := s.anomaly.ScanRecent(ctx, tenant, days)
	if err != nil {
		return r, err
	}
	s.bus.Publish(events.AnomaliesScanned{TenantID: tenant, Report: r, Time: s.now()})
	return r, nil
}

// Dashboard returns the condensed view of every report for tenant.
func (s *Service) Dashboard(ctx context.Context, tenant string) (intelligence.DashboardSummary, error) {
	r, err := s.reports(ctx, tenant)
	if err != nil {
		return intelligence.DashboardSummary{}, err
	}
	return r.Digest(), nil
}

func (s *Service) reports(ctx context.Context, tenant string) (intelligence.Reports, error) {
	if s.dashboard == nil {
		return intelligence.Reports{}, ErrNoIntelligenceSource
	}
	r, err := s.dashboard.Reports(ctx, tenant)
	if err != nil {
		return r, err
	}
	now := s.now()
	s.bus.Publish(events.BenchmarkComputed{TenantID: tenant, Result: r.Benchmark, Time: now})
	s.bus.Publish(events.TrendDetected{TenantID: tenant, Result: r.Trend, Time: now})
	s.bus.Publish(events.AnomaliesScanned{TenantID: tenant, Report: r.Anomalies, Time: now})
	return r, nil
}

// Scan computes the reports of tenant and publishes the alerts they raise.
// It returns the alerts that were published.
func (s *Service) Scan(ctx context.Context, tenant string) ([]alert.Alert, error) {
	r, err := s.reports(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", tenant, err)
	}
	now := s.now()
	var raised []alert.Alert
	if a, ok := alert.FromTrend(tenant, r.Trend, now); ok {
		raised = append(raised, a)
	}
	raised = append(raised, alert.FromAnomalies(r.Anomalies, now)...)

	var (
		errs      []error
		published []alert.Alert
	)
	for _, a := range raised {
		if err := s.alerts.Publish(ctx, a); err != nil {
			errs = append(errs, err)
			continue
		}
		published = append(published, a)
	}
	return published, errors.Join(errs...)
}

// Run starts the Prometheus endpoint and scans every configured tenant on the
// configured interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	defer s.mon.Recover()
	if addr := s.cfg.Metrics.PrometheusPort; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
				s.mon.CaptureException(err, map[string]string{"op": "prom_server"})
			}
		}()
	}
	if s.dashboard == nil || len(s.cfg.Intelligence.Tenants) == 0 {
		s.log.Warnf("no intelligence source or tenants configured; scan loop disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.cfg.Intelligence.ScanInterval())
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	s.reloadIfNewer(ctx)
	for _, tenant := range s.cfg.Intelligence.Tenants {
		if ctx.Err() != nil {
			return
		}
		published, err := s.Scan(ctx, tenant)
		if err != nil {
			s.log.Errorf("%v", err)
			s.mon.CaptureException(err, map[string]string{"tenant_id": tenant, "op": "scan"})
		}
		if len(published) > 0 {
			s.log.Infof("tenant %s: published %d alerts", tenant, len(published))
		}
	}
}

// reloadIfNewer picks up versions written by another process.
func (s *Service) reloadIfNewer(ctx context.Context) {
	versions, err := s.Registry.Versions(ctx)
	if err != nil || len(versions) == 0 {
		return
	}
	if a, ok := s.Registry.Active(); ok && a.Version == versions[0] {
		return
	}
	s.Registry.Reload(ctx)
}

// Close releases the stores and flushes pending reports.
func (s *Service) Close() error {
	err := s.release()
	s.mon.Flush(2 * time.Second)
	return err
}

func (s *Service) release() error {
	s.bus.Close()
	var errs []error
	if s.Logs != nil {
		if err := s.Logs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("prediction log: %w", err))
		}
	}
	if c, ok := s.alerts.(interface{ Close() }); ok {
		c.Close()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return errors.Join(errs...)
}
