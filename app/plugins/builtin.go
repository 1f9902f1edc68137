package plugins

import (
	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/core/predictionlog"
	"github.com/kilianp07/fleetintel/infra/mqtt"
	logstore "github.com/kilianp07/fleetintel/infra/predictionlog"
)

func init() {
	RegisterLogStore("jsonl", func(cfg config.PredictionLogConfig) (predictionlog.Store, error) {
		return logstore.NewJSONLStore(cfg.Path, logstore.Rotation{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
		})
	})
	RegisterLogStore("sqlite", func(cfg config.PredictionLogConfig) (predictionlog.Store, error) {
		return logstore.NewSQLiteStore(cfg.Path)
	})

	RegisterPublisher("nop", func(mqtt.Config) (alert.Publisher, error) {
		return alert.Nop{}, nil
	})
	RegisterPublisher("mqtt", func(cfg mqtt.Config) (alert.Publisher, error) {
		return mqtt.NewAlertPublisher(cfg)
	})
}
