package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

// RegistryConfig locates the model artifact directory.
type RegistryConfig struct {
	Dir string `json:"dir"`
}

func (c *RegistryConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "models"
	}
}

func (c RegistryConfig) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("dir is required")
	}
	return nil
}

// PostgresConfig configures the operational database. An empty DSN leaves
// the intelligence services unavailable.
type PostgresConfig struct {
	DSN string `json:"dsn"`
	// Migrate applies the embedded schema on startup.
	Migrate bool `json:"migrate"`
}

// Enabled reports whether a DSN is configured.
func (c PostgresConfig) Enabled() bool { return c.DSN != "" }

// LoggingConfig sets the process log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

func (c LoggingConfig) Validate() error {
	if c.Level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("unknown level %q", c.Level)
	}
	return nil
}

// IntelligenceConfig tunes the intelligence services and the periodic scan.
type IntelligenceConfig struct {
	intelligence.Config `json:",squash"`
	// Tenants scanned by the serve loop.
	Tenants []string `json:"tenants"`
	// ScanIntervalSeconds between two scans of every tenant.
	ScanIntervalSeconds int `json:"scan_interval_seconds"`
}

func (c *IntelligenceConfig) SetDefaults() {
	c.Config.SetDefaults()
	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = 3600
	}
}

func (c IntelligenceConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Tenants))
	for _, t := range c.Tenants {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("empty tenant id")
		}
		if seen[t] {
			return fmt.Errorf("duplicate tenant %s", t)
		}
		seen[t] = true
	}
	return nil
}

// ScanInterval returns the scan period.
func (c IntelligenceConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// TrainingConfig drives the offline model producer.
type TrainingConfig struct {
	MinSamples int     `json:"min_samples"`
	Holdout    float64 `json:"holdout"`
	Seed       uint64  `json:"seed"`
	Ridge      float64 `json:"ridge"`
}

func (c *TrainingConfig) SetDefaults() {
	if c.MinSamples <= 0 {
		c.MinSamples = 50
	}
	if c.Holdout == 0 {
		c.Holdout = 0.2
	}
}

func (c TrainingConfig) Validate() error {
	if c.Holdout < 0 || c.Holdout >= 1 {
		return fmt.Errorf("holdout must be within [0,1), got %v", c.Holdout)
	}
	if c.Ridge < 0 {
		return fmt.Errorf("ridge must not be negative")
	}
	return nil
}
