package predictionlog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/predictionlog"
)

var base = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func entry(id, tenant, job string, offset time.Duration, predictedProfit float64) predictionlog.Entry {
	return predictionlog.Entry{
		ID:                 id,
		TenantID:           tenant,
		JobID:              job,
		CreatedAt:          base.Add(offset),
		Features:           map[string]float64{"distance_km": 450},
		Importances:        map[string]float64{"fuel": 0.5, "driver": 0.5},
		OfferedRate:        1200,
		PredictedNetProfit: predictedProfit,
		PredictedTotalCost: 1200 - predictedProfit,
		PredictedMarginPct: predictedProfit / 1200 * 100,
		Risk:               "low",
		Recommendation:     "accept",
	}
}

func stores(t *testing.T) map[string]predictionlog.Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "logs", "predictions.jsonl"), Rotation{})
	require.NoError(t, err)
	jsonl.now = func() time.Time { return base.Add(48 * time.Hour) }
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "predictions.db"))
	require.NoError(t, err)
	sqlite.now = jsonl.now
	t.Cleanup(func() {
		_ = jsonl.Close()
		_ = sqlite.Close()
	})
	return map[string]predictionlog.Store{"jsonl": jsonl, "sqlite": sqlite}
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, store.Append(ctx, entry("e1", "t1", "job-1", 0, 500)))
			require.NoError(t, store.Append(ctx, entry("e2", "t1", "job-2", time.Hour, 300)))
			require.NoError(t, store.Append(ctx, entry("e3", "t2", "job-3", 2*time.Hour, 100)))
			// job-1 predicted again later: resolution targets the newer entry.
			require.NoError(t, store.Append(ctx, entry("e4", "t1", "job-1", 3*time.Hour, 450)))

			all, err := store.Query(ctx, predictionlog.Query{})
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, ids(all))
			assert.Equal(t, 450.0, all[0].Features["distance_km"])

			resolved, err := store.Resolve(ctx, "job-1", 400, 800, 1200)
			require.NoError(t, err)
			assert.Equal(t, "e4", resolved.ID)
			require.NotNil(t, resolved.ProfitError)
			assert.InDelta(t, -50.0, *resolved.ProfitError, 1e-9)
			require.NotNil(t, resolved.ResolvedAt)
			assert.True(t, base.Add(48*time.Hour).Equal(*resolved.ResolvedAt))

			done, err := store.Query(ctx, predictionlog.Query{ResolvedOnly: true})
			require.NoError(t, err)
			require.Len(t, done, 1)
			assert.Equal(t, "e4", done[0].ID)
			assert.InDelta(t, 400.0/1200*100, *done[0].ActualMarginPct, 1e-9)

			t1, err := store.Query(ctx, predictionlog.Query{TenantID: "t1", Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{"e2", "e4"}, ids(t1))

			since, err := store.Query(ctx, predictionlog.Query{Since: base.Add(2 * time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, []string{"e3", "e4"}, ids(since))

			_, err = store.Resolve(ctx, "missing", 1, 1, 1)
			assert.ErrorIs(t, err, predictionlog.ErrNotFound)
		})
	}
}

func TestJSONLStoreReadsRotatedBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "predictions.jsonl")
	store, err := NewJSONLStore(path, Rotation{MaxSizeMB: 1, MaxBackups: 5})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, entry("first", "t1", "job-first", 0, 10)))
	require.NoError(t, store.writer.Rotate())
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, entry(fmt.Sprintf("n%d", i), "t1", fmt.Sprintf("job-%d", i), time.Duration(i+1)*time.Minute, 10)))
	}

	backups, err := filepath.Glob(filepath.Join(dir, "predictions-*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, err = store.Resolve(ctx, "job-first", 20, 100, 120)
	require.NoError(t, err, "entries in rotated files remain resolvable")

	all, err := store.Query(ctx, predictionlog.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "n0", "n1", "n2"}, ids(all))
	assert.True(t, all[0].Resolved())
}

func ids(entries []predictionlog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
