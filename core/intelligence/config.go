package intelligence

import "fmt"

// MinPeers is the privacy floor for cross-tenant aggregates. It is not
// configurable.
const MinPeers = 3

// DefaultPercentileExtrapolation is the extrapolation used when none is
// configured.
const DefaultPercentileExtrapolation = 20.0

// Config tunes the intelligence services. Zero values are replaced by
// defaults in SetDefaults, except PercentileExtrapolation where only an unset
// value is.
type Config struct {
	// PercentileExtrapolation is how far below p25 and above p90 the
	// synthetic 0th and 100th percentile points are placed, in margin points.
	// 0 pins every margin outside [p25, p90] to rank 0 or 100.
	PercentileExtrapolation *float64 `json:"percentile_extrapolation,omitempty" yaml:"percentile_extrapolation,omitempty"`
	TrendWeeks              int     `json:"trend_weeks" yaml:"trend_weeks"`
	DashboardTrendWeeks     int     `json:"dashboard_trend_weeks" yaml:"dashboard_trend_weeks"`
	AnomalyDays             int     `json:"anomaly_days" yaml:"anomaly_days"`
	MinJobsPerWeek          int     `json:"min_jobs_per_week" yaml:"min_jobs_per_week"`
	MinTrendWeeks           int     `json:"min_trend_weeks" yaml:"min_trend_weeks"`
	MinBaselineJobs         int     `json:"min_baseline_jobs" yaml:"min_baseline_jobs"`
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.PercentileExtrapolation == nil {
		v := DefaultPercentileExtrapolation
		c.PercentileExtrapolation = &v
	}
	if c.TrendWeeks <= 0 {
		c.TrendWeeks = 12
	}
	if c.DashboardTrendWeeks <= 0 {
		c.DashboardTrendWeeks = 8
	}
	if c.AnomalyDays <= 0 {
		c.AnomalyDays = 30
	}
	if c.MinJobsPerWeek <= 0 {
		c.MinJobsPerWeek = 5
	}
	if c.MinTrendWeeks <= 0 {
		c.MinTrendWeeks = 4
	}
	if c.MinBaselineJobs <= 0 {
		c.MinBaselineJobs = 10
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// Extrapolation returns the configured percentile extrapolation or the
// default when unset.
func (c Config) Extrapolation() float64 {
	if c.PercentileExtrapolation == nil {
		return DefaultPercentileExtrapolation
	}
	return *c.PercentileExtrapolation
}

// Validate rejects a negative extrapolation, which would invert the synthetic
// end points of the percentile scale.
func (c Config) Validate() error {
	if c.Extrapolation() < 0 {
		return fmt.Errorf("percentile_extrapolation must be >= 0, got %v", c.Extrapolation())
	}
	return nil
}
