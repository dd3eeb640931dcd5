package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenTracker/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_Runs(t *testing.T) {
	r := openTestRecorder(t)
	base := time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC)

	for i, status := range []string{StatusOK, StatusNoData, StatusFailed} {
		run := &RunRecord{
			RunID:           string(rune('a' + i)),
			StartedAt:       base.Add(time.Duration(i) * time.Hour),
			Token:           "kaito",
			Currency:        "usd",
			Days:            30,
			PriceThreshold:  10,
			VolumeThreshold: 50,
			Records:         30 - i,
			Spikes:          i,
			CurrentPrice:    1.5,
			Status:          status,
		}
		if status == StatusFailed {
			run.Error = "fetch market chart: status 429"
		}
		require.NoError(t, r.RecordRun(run))
	}

	runs, err := r.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "fetch market chart: status 429", runs[0].Error)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "b", runs[1].RunID)
	assert.Equal(t, 29, runs[1].Records)
}

func TestSQLiteRecorder_DuplicateRunID(t *testing.T) {
	r := openTestRecorder(t)
	run := &RunRecord{RunID: "same", StartedAt: time.Now(), Token: "kaito", Currency: "usd", Status: StatusOK}
	require.NoError(t, r.RecordRun(run))
	assert.Error(t, r.RecordRun(run))
}

func TestSQLiteRecorder_Spikes(t *testing.T) {
	r := openTestRecorder(t)
	ts := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	spikes := []model.SpikeEvent{
		{Timestamp: ts, Date: "2025-04-02", Kind: model.KindPriceAndVolume, Metric: model.MetricPrice,
			Direction: model.DirectionUp, ChangePct: 20, Value: 1.2, VolumeChangePct: null.FloatFrom(60)},
		{Timestamp: ts.AddDate(0, 0, 1), Date: "2025-04-03", Kind: model.KindPrice, Metric: model.MetricPrice,
			Direction: model.DirectionDown, ChangePct: -12, Value: 1.05},
	}
	require.NoError(t, r.RecordSpikes("run-1", spikes))
	require.NoError(t, r.RecordSpikes("run-2", nil))

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM spikes WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 2, count)

	var pct null.Float
	require.NoError(t, r.db.QueryRow(`SELECT volume_change_pct FROM spikes WHERE date = ?`, "2025-04-03").Scan(&pct))
	assert.False(t, pct.Valid)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&RunRecord{}))
	assert.NoError(t, r.RecordSpikes("x", nil))
	runs, err := r.RecentRuns(10)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
