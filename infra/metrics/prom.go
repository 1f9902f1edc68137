package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
)

// PromSink exposes predictions and intelligence runs as Prometheus metrics.
type PromSink struct {
	predictions *prometheus.CounterVec
	margin      *prometheus.HistogramVec
	percentile  *prometheus.GaugeVec
	slope       *prometheus.GaugeVec
	trendAlerts *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	scanned     *prometheus.CounterVec
	model       *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetintel_predictions_total",
			Help: "Scored jobs by prediction path, risk tier and recommendation",
		}, []string{"path", "risk", "recommendation"}),
		margin: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetintel_predicted_margin_pct",
			Help:    "Predicted margin of scored jobs in percent",
			Buckets: []float64{-20, -10, 0, 5, 10, 15, 20, 30, 40, 60},
		}, []string{"path"}),
		percentile: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetintel_benchmark_percentile",
			Help: "Latest margin percentile of a tenant within its size bucket",
		}, []string{"tenant_id", "bucket"}),
		slope: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetintel_trend_slope_pct_per_week",
			Help: "Latest weekly margin slope of a tenant",
		}, []string{"tenant_id"}),
		trendAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetintel_trend_alerts_total",
			Help: "Trend analyses that raised an alert",
		}, []string{"tenant_id"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetintel_anomalies_total",
			Help: "Flagged anomalies by kind",
		}, []string{"tenant_id", "kind"}),
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetintel_anomaly_jobs_scanned_total",
			Help: "Jobs inspected by anomaly scans",
		}, []string{"tenant_id"}),
		model: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetintel_active_model_info",
			Help: "Active model artifact; the value is the training R2",
		}, []string{"version", "kind"}),
	}
	var err error
	if s.predictions, err = register(reg, s.predictions); err != nil {
		return nil, err
	}
	if s.margin, err = register(reg, s.margin); err != nil {
		return nil, err
	}
	if s.percentile, err = register(reg, s.percentile); err != nil {
		return nil, err
	}
	if s.slope, err = register(reg, s.slope); err != nil {
		return nil, err
	}
	if s.trendAlerts, err = register(reg, s.trendAlerts); err != nil {
		return nil, err
	}
	if s.anomalies, err = register(reg, s.anomalies); err != nil {
		return nil, err
	}
	if s.scanned, err = register(reg, s.scanned); err != nil {
		return nil, err
	}
	if s.model, err = register(reg, s.model); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPrediction counts the job and observes its margin.
func (s *PromSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	s.predictions.WithLabelValues(ev.Path, ev.Risk, ev.Recommendation).Inc()
	s.margin.WithLabelValues(ev.Path).Observe(ev.MarginPct)
	return nil
}

// RecordBenchmark sets the percentile gauge. Unranked tenants are skipped.
func (s *PromSink) RecordBenchmark(ev coremetrics.BenchmarkEvent) error {
	if ev.Percentile == nil {
		return nil
	}
	s.percentile.WithLabelValues(ev.TenantID, ev.Bucket).Set(float64(*ev.Percentile))
	return nil
}

func (s *PromSink) RecordTrend(ev coremetrics.TrendEvent) error {
	if ev.Slope != nil {
		s.slope.WithLabelValues(ev.TenantID).Set(*ev.Slope)
	}
	if ev.Alert {
		s.trendAlerts.WithLabelValues(ev.TenantID).Inc()
	}
	return nil
}

func (s *PromSink) RecordAnomalyScan(ev coremetrics.AnomalyScanEvent) error {
	s.scanned.WithLabelValues(ev.TenantID).Add(float64(ev.Scanned))
	for kind, n := range ev.ByKind {
		s.anomalies.WithLabelValues(ev.TenantID, kind).Add(float64(n))
	}
	return nil
}

// RecordModelActivated resets the info gauge so only the active version is
// exported.
func (s *PromSink) RecordModelActivated(ev coremetrics.ModelActivatedEvent) error {
	s.model.Reset()
	s.model.WithLabelValues(ev.Version, ev.Kind).Set(ev.TrainR2)
	return nil
}
