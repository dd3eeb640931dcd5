// Package analysis runs the tracker pipeline: collect, process, detect,
// summarise, then write reports and charts and hand the result to the
// optional recorder, notifier and archive.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"TokenTracker/internal/calculator"
	"TokenTracker/internal/chart"
	"TokenTracker/internal/collector"
	"TokenTracker/internal/metrics"
	"TokenTracker/internal/model"
	"TokenTracker/internal/notifier"
	"TokenTracker/internal/recorder"
	"TokenTracker/internal/report"
)

// ErrNoData is returned when the market chart contained no price points.
var ErrNoData = errors.New("analysis: no market data")

const notifyRetries = 3

// Options are the per-run parameters.
type Options struct {
	Days       int
	Thresholds calculator.Thresholds
}

// Files lists the artifacts written by a run. Skipped artifacts are "".
type Files struct {
	MarketData        string `json:"market_data"`
	Spikes            string `json:"spikes"`
	JSONReport        string `json:"json_report"`
	TextReport        string `json:"text_report"`
	MarketChart       string `json:"market_chart"`
	DistributionChart string `json:"distribution_chart"`
}

// All returns the non-empty paths.
func (f Files) All() []string {
	var out []string
	for _, p := range []string{f.MarketData, f.Spikes, f.JSONReport, f.TextReport, f.MarketChart, f.DistributionChart} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Result is the outcome of one completed analysis.
type Result struct {
	RunID     string
	StartedAt time.Time
	Options   Options
	Records   []model.DailyRecord
	Spikes    []model.SpikeEvent
	Stats     *model.StatisticsSummary
	Document  *report.Document
	Files     Files
}

// Notifier delivers alerts. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Archiver copies run artifacts to long-term storage.
type Archiver interface {
	Upload(ctx context.Context, token, runID string, paths []string) ([]string, error)
}

// Deps are the collaborators of a Runner. Collector and Writer are required;
// the rest may be nil.
type Deps struct {
	Collector *collector.Collector
	Writer    *report.Writer
	Charts    *chart.Renderer
	Recorder  recorder.Recorder
	Notifier  Notifier
	Archiver  Archiver
}

// Runner executes analyses one at a time and keeps the latest result.
type Runner struct {
	deps Deps
	// AlertWindow limits alerts to spikes this recent.
	AlertWindow time.Duration
	now         func() time.Time

	runMu   sync.Mutex
	mu      sync.RWMutex
	latest  *Result
	alerted map[string]bool
}

// NewRunner creates a Runner. A nil Recorder is replaced by a no-op one.
func NewRunner(deps Deps) *Runner {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Runner{
		deps:        deps,
		AlertWindow: 48 * time.Hour,
		now:         time.Now,
		alerted:     make(map[string]bool),
	}
}

// Latest returns the most recent successful result, or nil.
func (r *Runner) Latest() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Recorder returns the run history store.
func (r *Runner) Recorder() recorder.Recorder { return r.deps.Recorder }

// Token returns the tracked coin id.
func (r *Runner) Token() string { return r.deps.Collector.CoinID }

// Analyze runs the pure part of the pipeline on fetched data.
// It returns ErrNoData when no daily records could be built.
func Analyze(data *model.MarketData, opts Options) (*Result, error) {
	if data == nil || data.Chart == nil {
		return nil, ErrNoData
	}
	records := calculator.ProcessSeries(*data.Chart)
	if len(records) == 0 {
		return nil, ErrNoData
	}
	spikes := calculator.DetectSpikes(records, opts.Thresholds)
	stats, err := calculator.Summarize(records, data.Snapshot)
	if err != nil {
		return nil, err
	}
	return &Result{Options: opts, Records: records, Spikes: spikes, Stats: stats}, nil
}

// Run fetches fresh data and executes the full pipeline.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runID := uuid.NewString()
	started := r.now()
	token := r.deps.Collector.CoinID
	logger := log.With().Str("run_id", runID).Str("token", token).Logger()
	logger.Info().Int("days", opts.Days).
		Float64("price_threshold", opts.Thresholds.Price).
		Float64("volume_threshold", opts.Thresholds.Volume).
		Msg("analysis started")

	run := &recorder.RunRecord{
		RunID:           runID,
		StartedAt:       started,
		Token:           token,
		Currency:        r.deps.Collector.VsCurrency,
		Days:            opts.Days,
		PriceThreshold:  opts.Thresholds.Price,
		VolumeThreshold: opts.Thresholds.Volume,
	}

	res, err := r.run(ctx, runID, started, opts)
	switch {
	case errors.Is(err, ErrNoData):
		run.Status = recorder.StatusNoData
		run.Error = err.Error()
		logger.Warn().Msg("no market data returned, skipping analysis")
	case err != nil:
		run.Status = recorder.StatusFailed
		run.Error = err.Error()
		logger.Error().Err(err).Msg("analysis failed")
		r.notify(ctx, notifier.FormatError(token, err))
	default:
		run.Status = recorder.StatusOK
		run.Records = len(res.Records)
		run.Spikes = len(res.Spikes)
		run.CurrentPrice = res.Stats.Price.Current
		run.ChangePct = res.Stats.Price.ChangePct
		run.Volatility = res.Stats.Price.Volatility
	}
	metrics.RunsTotal.WithLabelValues(run.Status).Inc()

	if recErr := r.deps.Recorder.RecordRun(run); recErr != nil {
		logger.Warn().Err(recErr).Msg("record run failed")
	}
	if err != nil {
		return nil, err
	}
	if recErr := r.deps.Recorder.RecordSpikes(runID, res.Spikes); recErr != nil {
		logger.Warn().Err(recErr).Msg("record spikes failed")
	}

	for _, s := range res.Spikes {
		metrics.SpikesDetected.WithLabelValues(string(s.Kind)).Inc()
	}
	metrics.LastRunTimestamp.Set(float64(r.now().Unix()))

	r.alert(ctx, res.Spikes)
	r.archive(ctx, res)

	r.mu.Lock()
	r.latest = res
	r.mu.Unlock()

	logger.Info().Int("records", len(res.Records)).Int("spikes", len(res.Spikes)).
		Dur("elapsed", r.now().Sub(started)).Msg("analysis finished")
	return res, nil
}

func (r *Runner) run(ctx context.Context, runID string, started time.Time, opts Options) (*Result, error) {
	data, err := r.deps.Collector.Collect(ctx, opts.Days)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	res, err := Analyze(data, opts)
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	res.StartedAt = started

	res.Document = report.BuildDocument(report.Metadata{
		GeneratedAt: r.now(),
		Token:       r.deps.Writer.Token,
		Currency:    r.deps.Writer.Currency,
		RunID:       runID,
	}, res.Stats, res.Spikes)

	if err := r.writeArtifacts(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) writeArtifacts(res *Result) error {
	w := r.deps.Writer
	var err error
	if res.Files.MarketData, err = w.SaveMarketData(res.Records); err != nil {
		return err
	}
	if res.Files.Spikes, err = w.SaveSpikes(res.Spikes); err != nil {
		return err
	}
	if res.Files.JSONReport, err = w.SaveJSONReport(res.Document); err != nil {
		return err
	}
	if res.Files.TextReport, err = w.SaveTextReport(res.Document); err != nil {
		return err
	}

	// Charts are best effort; the reports above are the primary output.
	if c := r.deps.Charts; c != nil {
		if res.Files.MarketChart, err = c.RenderMarketChart(res.Records, res.Spikes, res.Stats); err != nil {
			log.Error().Err(err).Msg("render market chart")
		}
		if res.Files.DistributionChart, err = c.RenderSpikeDistribution(res.Spikes); err != nil {
			log.Error().Err(err).Msg("render spike distribution")
		}
	}
	return nil
}

// alert sends spikes inside AlertWindow that have not been alerted before.
func (r *Runner) alert(ctx context.Context, spikes []model.SpikeEvent) {
	if r.deps.Notifier == nil {
		return
	}
	cutoff := r.now().Add(-r.AlertWindow)
	var fresh []model.SpikeEvent
	for _, s := range spikes {
		key := s.Date + "/" + string(s.Metric)
		if s.Timestamp.Before(cutoff) || r.alerted[key] {
			continue
		}
		r.alerted[key] = true
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		return
	}
	r.notify(ctx, notifier.FormatSpikeAlert(r.deps.Collector.CoinID, fresh))
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.deps.Notifier == nil || text == "" {
		return
	}
	if err := r.deps.Notifier.SendWithRetry(ctx, text, notifyRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func (r *Runner) archive(ctx context.Context, res *Result) {
	if r.deps.Archiver == nil {
		return
	}
	if _, err := r.deps.Archiver.Upload(ctx, r.deps.Collector.CoinID, res.RunID, res.Files.All()); err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("archive upload failed")
	}
}
