// Package export writes intelligence reports and prediction logs as JSON or
// CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/fleetintel/core/intelligence"
	"github.com/kilianp07/fleetintel/core/predictionlog"
)

// Formats lists the supported output formats. html is only available for
// trends.
var Formats = []string{"json", "csv", "html"}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTrendCSV writes one row per analysed week.
func WriteTrendCSV(w io.Writer, r intelligence.TrendResult) error {
	rows := make([][]string, 0, len(r.DataPoints))
	for _, p := range r.DataPoints {
		rows = append(rows, []string{
			p.WeekStart.Format(time.DateOnly),
			strconv.Itoa(p.JobCount),
			formatFloat(p.AvgMarginPct),
			formatFloat(p.WeeklyRevenue),
		})
	}
	return writeCSV(w, []string{"week_start", "job_count", "avg_margin_pct", "weekly_revenue"}, rows)
}

// WriteAnomaliesCSV writes one row per flagged anomaly, in report order.
func WriteAnomaliesCSV(w io.Writer, r intelligence.AnomalyReport) error {
	rows := make([][]string, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		rows = append(rows, []string{
			a.JobID,
			string(a.Kind),
			string(a.Severity),
			formatFloat(a.ZScore),
			formatFloat(a.Value),
			formatFloat(a.Mean),
			formatFloat(a.StdDev),
			a.Origin,
			a.Destination,
			a.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeCSV(w, []string{
		"job_id", "anomaly_type", "severity", "z_score", "actual_value",
		"fleet_mean", "fleet_stddev", "origin", "destination", "created_at",
	}, rows)
}

// WriteBenchmarkCSV writes the tenant metrics next to the industry context
// as metric,value pairs. Missing values are left empty.
func WriteBenchmarkCSV(w io.Writer, r intelligence.BenchmarkResult) error {
	rows := [][]string{
		{"fleet_size_bucket", string(r.Fleet.Bucket)},
		{"job_count", strconv.Itoa(r.Fleet.JobCount)},
		{"avg_margin_pct", formatFloat(r.Fleet.AvgMarginPct)},
		{"avg_rate_per_km", formatFloat(r.Fleet.AvgRatePerKM)},
		{"avg_cost_per_km", formatFloat(r.Fleet.AvgCostPerKM)},
		{"insufficient_data", strconv.FormatBool(r.InsufficientData)},
		{"fleet_percentile", optionalInt(r.Percentile)},
		{"margin_vs_industry", optionalFloat(r.MarginDelta)},
		{"rate_vs_industry", optionalFloat(r.RateDelta)},
		{"cost_vs_industry", optionalFloat(r.CostDelta)},
	}
	if ic := r.Industry; ic != nil {
		rows = append(rows,
			[]string{"n_fleets", strconv.Itoa(ic.NTenants)},
			[]string{"industry_avg_margin_pct", formatFloat(ic.AvgMarginPct)},
			[]string{"p25_margin_pct", formatFloat(ic.P25MarginPct)},
			[]string{"p50_margin_pct", formatFloat(ic.P50MarginPct)},
			[]string{"p75_margin_pct", formatFloat(ic.P75MarginPct)},
			[]string{"p90_margin_pct", formatFloat(ic.P90MarginPct)},
		)
	}
	return writeCSV(w, []string{"metric", "value"}, rows)
}

// WritePredictionLogCSV writes one row per entry. Actual columns are empty
// for unresolved entries.
func WritePredictionLogCSV(w io.Writer, entries []predictionlog.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.TenantID,
			e.JobID,
			e.CreatedAt.Format(time.RFC3339),
			e.ModelVersion,
			formatFloat(e.OfferedRate),
			formatFloat(e.PredictedNetProfit),
			formatFloat(e.PredictedMarginPct),
			e.Risk,
			e.Recommendation,
			optionalFloat(e.ActualNetProfit),
			optionalFloat(e.ActualMarginPct),
			optionalFloat(e.ProfitError),
		})
	}
	return writeCSV(w, []string{
		"id", "tenant_id", "job_id", "created_at", "model_version", "offered_rate",
		"predicted_net_profit", "predicted_margin_pct", "risk_level", "recommendation",
		"actual_net_profit", "actual_margin_pct", "profit_error",
	}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range rows {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func optionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
