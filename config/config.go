// Package config loads the service configuration from a YAML or JSON file
// with FI_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetintel/core/metrics"
	"github.com/kilianp07/fleetintel/infra/monitoring"
	"github.com/kilianp07/fleetintel/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. FI_REGISTRY__DIR.
const EnvPrefix = "FI_"

type Config struct {
	Registry      RegistryConfig          `json:"registry"`
	Postgres      PostgresConfig          `json:"postgres"`
	Metrics       metrics.Config          `json:"metrics"`
	MQTT          mqtt.Config             `json:"mqtt"`
	Logging       LoggingConfig           `json:"logging"`
	PredictionLog PredictionLogConfig     `json:"prediction_log"`
	Intelligence  IntelligenceConfig      `json:"intelligence"`
	Training      TrainingConfig          `json:"training"`
	Sentry        monitoring.SentryConfig `json:"sentry"`
}

// Load reads path and applies environment overrides. An empty path loads the
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills zero fields of every section. MQTT stays disabled when no
// broker is configured.
func (c *Config) SetDefaults() {
	c.Registry.SetDefaults()
	c.PredictionLog.SetDefaults()
	c.Intelligence.SetDefaults()
	c.Training.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Registry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("registry: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.PredictionLog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("prediction_log: %w", err))
	}
	if err := c.Intelligence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("intelligence: %w", err))
	}
	if err := c.Training.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("training: %w", err))
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	if c.MQTT.Enabled() {
		if err := c.MQTT.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	return errors.Join(errs...)
}
