package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"TokenTracker/internal/analysis"
	"TokenTracker/internal/notifier"
)

const sendRetries = 3

// Scheduler runs the analysis on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *analysis.Runner
	Options  analysis.Options
	Notifier analysis.Notifier
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler. tn may be nil.
func NewScheduler(ctx context.Context, runner *analysis.Runner, opts analysis.Options, tn analysis.Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Options:  opts,
		Notifier: tn,
		Ctx:      ctx,
	}
}

// RegisterAll registers the analysis task and, when summaryCron is set, the
// periodic summary message.
func (s *Scheduler) RegisterAll(watchCron, summaryCron string) error {
	if _, err := s.Cron.AddFunc(watchCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	if summaryCron != "" {
		if _, err := s.Cron.AddFunc(summaryCron, s.summaryTask); err != nil {
			return fmt.Errorf("register summary task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the analysis task immediately.
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	log.Info().Msg("running scheduled analysis")
	// The runner logs, records and notifies failures itself.
	_, _ = s.Runner.Run(s.Ctx, s.Options)
}

func (s *Scheduler) summaryTask() {
	log.Info().Msg("sending scheduled summary")
	s.trySend(s.summary())
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/summary":
		return s.summary()
	case "/spikes":
		latest := s.Runner.Latest()
		if latest == nil {
			return "No analysis has run yet."
		}
		if len(latest.Spikes) == 0 {
			return "No spikes detected in the latest analysis."
		}
		return notifier.FormatSpikeAlert(s.Runner.Token(), latest.Spikes)
	case "/run":
		res, err := s.Runner.Run(ctx, s.Options)
		if errors.Is(err, analysis.ErrNoData) {
			return "No market data returned, analysis skipped."
		}
		if err != nil {
			// Failure notification already went out from the runner.
			return ""
		}
		return notifier.FormatRunSummary(s.Runner.Token(), res.Stats, len(res.Spikes))
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) summary() string {
	latest := s.Runner.Latest()
	if latest == nil {
		return "No analysis has run yet."
	}
	return notifier.FormatRunSummary(s.Runner.Token(), latest.Stats, len(latest.Spikes))
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil || text == "" {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
