package metrics

import (
	"context"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
	"github.com/kilianp07/fleetintel/infra/logger"
)

// InfluxSink writes prediction and intelligence events to InfluxDB using the
// official client. Every event becomes one point.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPrediction writes one prediction point.
func (s *InfluxSink) RecordPrediction(ev coremetrics.PredictionEvent) error {
	p := write.NewPointWithMeasurement("prediction").
		AddTag("tenant_id", ev.TenantID).
		AddTag("path", ev.Path).
		AddTag("risk", ev.Risk).
		AddTag("recommendation", ev.Recommendation)
	if ev.ModelVersion != "" {
		p = p.AddTag("model_version", ev.ModelVersion)
	}
	p = p.AddField("margin_pct", round3(ev.MarginPct)).
		AddField("net_profit", round3(ev.NetProfit)).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) RecordBenchmark(ev coremetrics.BenchmarkEvent) error {
	p := write.NewPointWithMeasurement("benchmark").
		AddTag("tenant_id", ev.TenantID).
		AddTag("bucket", ev.Bucket).
		AddField("ranked", ev.Percentile != nil)
	if ev.Percentile != nil {
		p = p.AddField("percentile", *ev.Percentile)
	}
	if ev.MarginDelta != nil {
		p = p.AddField("margin_delta", round3(*ev.MarginDelta))
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordTrend(ev coremetrics.TrendEvent) error {
	p := write.NewPointWithMeasurement("trend").
		AddTag("tenant_id", ev.TenantID).
		AddTag("trend", ev.Trend).
		AddTag("confidence", ev.Confidence).
		AddField("alert", ev.Alert)
	if ev.Slope != nil {
		p = p.AddField("slope", round3(*ev.Slope))
	}
	if ev.R2 != nil {
		p = p.AddField("r2", round3(*ev.R2))
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordAnomalyScan writes the scan totals with one count field per kind.
func (s *InfluxSink) RecordAnomalyScan(ev coremetrics.AnomalyScanEvent) error {
	p := write.NewPointWithMeasurement("anomaly_scan").
		AddTag("tenant_id", ev.TenantID).
		AddField("scanned", ev.Scanned).
		AddField("high_severity", ev.HighSeverity).
		AddField("insufficient_baseline", ev.Insufficient)
	kinds := make([]string, 0, len(ev.ByKind))
	for k := range ev.ByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		p = p.AddField(k, ev.ByKind[k])
	}
	return s.write(p.SetTime(ev.Time))
}

func (s *InfluxSink) RecordModelActivated(ev coremetrics.ModelActivatedEvent) error {
	p := write.NewPointWithMeasurement("model_activated").
		AddTag("version", ev.Version).
		AddTag("kind", ev.Kind).
		AddField("training_samples", ev.TrainingSamples).
		AddField("train_r2", round3(ev.TrainR2)).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
