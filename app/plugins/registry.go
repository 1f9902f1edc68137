// Package plugins maps configured backend names to constructors for the
// service's pluggable stores and publishers.
package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/core/predictionlog"
	"github.com/kilianp07/fleetintel/infra/mqtt"
)

// LogStoreFactory builds a prediction log store from its configuration.
type LogStoreFactory func(cfg config.PredictionLogConfig) (predictionlog.Store, error)

// PublisherFactory builds an alert publisher from the MQTT configuration.
type PublisherFactory func(cfg mqtt.Config) (alert.Publisher, error)

var (
	LogStores  = map[string]LogStoreFactory{}
	Publishers = map[string]PublisherFactory{}
)

func RegisterLogStore(name string, f LogStoreFactory)   { LogStores[name] = f }
func RegisterPublisher(name string, f PublisherFactory) { Publishers[name] = f }

// NewLogStore builds the store selected by cfg.Backend.
func NewLogStore(cfg config.PredictionLogConfig) (predictionlog.Store, error) {
	f, ok := LogStores[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown prediction log backend %s (known: %v)", cfg.Backend, names(LogStores))
	}
	return f(cfg)
}

// NewPublisher builds the MQTT publisher when a broker is configured and the
// no-op publisher otherwise.
func NewPublisher(cfg mqtt.Config) (alert.Publisher, error) {
	name := "nop"
	if cfg.Enabled() {
		name = "mqtt"
	}
	f, ok := Publishers[name]
	if !ok {
		return nil, fmt.Errorf("unknown alert publisher %s", name)
	}
	return f(cfg)
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
