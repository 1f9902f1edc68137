package plugins

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/config"
	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/infra/mqtt"
	logstore "github.com/kilianp07/fleetintel/infra/predictionlog"
)

func TestNewLogStoreBackends(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLogStore(config.PredictionLogConfig{Backend: "jsonl", Path: filepath.Join(dir, "p.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &logstore.JSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewLogStore(config.PredictionLogConfig{Backend: "sqlite", Path: filepath.Join(dir, "p.db")})
	require.NoError(t, err)
	assert.IsType(t, &logstore.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewLogStore(config.PredictionLogConfig{Backend: "csv", Path: "x"})
	assert.ErrorContains(t, err, "unknown prediction log backend")
}

func TestNewPublisherWithoutBrokerIsNop(t *testing.T) {
	p, err := NewPublisher(mqtt.Config{})
	require.NoError(t, err)
	assert.Equal(t, alert.Nop{}, p)
}
