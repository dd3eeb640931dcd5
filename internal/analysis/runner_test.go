package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenTracker/internal/calculator"
	"TokenTracker/internal/chart"
	"TokenTracker/internal/collector"
	"TokenTracker/internal/model"
	"TokenTracker/internal/recorder"
	"TokenTracker/internal/report"
)

var (
	testNow     = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	defaultOpts = Options{Days: 30, Thresholds: calculator.Thresholds{Price: 10, Volume: 50}}
)

type fakeRecorder struct {
	mu     sync.Mutex
	runs   []recorder.RunRecord
	spikes map[string]int
}

func (f *fakeRecorder) RecordRun(run *recorder.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRecorder) RecordSpikes(runID string, spikes []model.SpikeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spikes == nil {
		f.spikes = map[string]int{}
	}
	f.spikes[runID] = len(spikes)
	return nil
}

func (f *fakeRecorder) RecentRuns(int) ([]recorder.RunRecord, error) { return f.runs, nil }
func (f *fakeRecorder) Close() error                                 { return nil }

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.messages = append(f.messages, text)
	return nil
}

type fakeArchiver struct {
	runID string
	paths []string
	err   error
}

func (f *fakeArchiver) Upload(_ context.Context, _, runID string, paths []string) ([]string, error) {
	f.runID, f.paths = runID, paths
	return paths, f.err
}

type fixture struct {
	runner   *Runner
	fetcher  *collector.MockFetcher
	recorder *fakeRecorder
	notifier *fakeNotifier
	archiver *fakeArchiver
	root     string
}

func newFixture(t *testing.T, withCharts bool) *fixture {
	t.Helper()
	root := t.TempDir()
	w, err := report.NewWriter(filepath.Join(root, "data"), filepath.Join(root, "reports"), "kaito", "usd")
	require.NoError(t, err)

	f := &fixture{
		fetcher:  &collector.MockFetcher{Now: testNow},
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
		root:     root,
	}
	deps := Deps{
		Collector: collector.NewCollector(f.fetcher, "kaito", "usd"),
		Writer:    w,
		Recorder:  f.recorder,
		Notifier:  f.notifier,
		Archiver:  f.archiver,
	}
	if withCharts {
		deps.Charts, err = chart.NewRenderer(filepath.Join(root, "visualizations"), "kaito", 8, 7, 50)
		require.NoError(t, err)
	}
	f.runner = NewRunner(deps)
	f.runner.now = func() time.Time { return testNow }
	return f
}

func TestRunner_Run(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.runner.Run(context.Background(), defaultOpts)
	require.NoError(t, err)
	require.Len(t, res.Records, 30)
	price, volume := calculator.CountByMetric(res.Spikes)
	assert.Equal(t, 2, price)
	assert.Equal(t, 4, volume)
	assert.Equal(t, 30, res.Document.Metadata.AnalysisDays)
	assert.Equal(t, res.RunID, res.Document.Metadata.RunID)
	assert.NotNil(t, res.Stats.CurrentMarket)

	for _, p := range res.Files.All() {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Len(t, res.Files.All(), 6)
	assert.Same(t, res, f.runner.Latest())

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, recorder.StatusOK, f.recorder.runs[0].Status)
	assert.Equal(t, 6, f.recorder.runs[0].Spikes)
	assert.Equal(t, 6, f.recorder.spikes[res.RunID])

	assert.Equal(t, res.RunID, f.archiver.runID)
	assert.Equal(t, res.Files.All(), f.archiver.paths)

	// Only the 2025-04-09 volume surge falls inside the alert window.
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "2025-04-09")
	assert.NotContains(t, f.notifier.messages[0], "2025-04-02")

	loaded, err := report.LoadDocument(res.Files.JSONReport)
	require.NoError(t, err)
	assert.Equal(t, res.Document.SpikeSummary, loaded.SpikeSummary)
}

func TestRunner_AlertsOnce(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.runner.Run(context.Background(), defaultOpts)
	require.NoError(t, err)
	_, err = f.runner.Run(context.Background(), defaultOpts)
	require.NoError(t, err)

	assert.Len(t, f.notifier.messages, 1)
	assert.Len(t, f.recorder.runs, 2)
}

func TestRunner_NoData(t *testing.T) {
	f := newFixture(t, false)
	f.fetcher.Chart = &model.MarketChart{}

	res, err := f.runner.Run(context.Background(), defaultOpts)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, res)
	assert.Nil(t, f.runner.Latest())
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, recorder.StatusNoData, f.recorder.runs[0].Status)
	assert.Empty(t, f.notifier.messages)

	_, statErr := os.Stat(filepath.Join(f.root, "reports", "kaito_analysis.json"))
	assert.True(t, os.IsNotExist(statErr), "later stages must be skipped")
}

func TestRunner_FetchFailure(t *testing.T) {
	f := newFixture(t, false)
	f.fetcher.ChartErr = errors.New("status 429")

	_, err := f.runner.Run(context.Background(), defaultOpts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect: status 429")
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, recorder.StatusFailed, f.recorder.runs[0].Status)
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "analysis failed")
}

func TestRunner_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, false)
	f.archiver.err = errors.New("bucket gone")

	res, err := f.runner.Run(context.Background(), defaultOpts)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestAnalyze(t *testing.T) {
	snap := &model.LiveSnapshot{CurrentPrice: 1.21, MarketCap: 100}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	data := &model.MarketData{
		Chart: &model.MarketChart{
			Prices: []model.RawPoint{
				{Timestamp: base.UnixMilli(), Value: 1.00},
				{Timestamp: base.AddDate(0, 0, 1).UnixMilli(), Value: 1.20},
				{Timestamp: base.AddDate(0, 0, 2).UnixMilli(), Value: 1.21},
			},
		},
		Snapshot: snap,
	}

	res, err := Analyze(data, defaultOpts)
	require.NoError(t, err)
	require.Len(t, res.Spikes, 1)
	assert.Equal(t, "2025-03-02", res.Spikes[0].Date)
	require.NotNil(t, res.Stats.CurrentMarket)
	assert.NotSame(t, snap, res.Stats.CurrentMarket)

	_, err = Analyze(&model.MarketData{}, defaultOpts)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = Analyze(nil, defaultOpts)
	assert.ErrorIs(t, err, ErrNoData)
}
