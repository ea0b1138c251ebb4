package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SpreadSentinel/internal/collector"
	"SpreadSentinel/internal/model"
	"SpreadSentinel/internal/notifier"
	"SpreadSentinel/internal/recorder"
)

// Trigger labels what started an evaluation cycle.
const (
	TriggerCron    = "CRON"
	TriggerCommand = "COMMAND"
	TriggerStartup = "STARTUP"
	TriggerOnce    = "ONCE"
)

// Alert modes.
const (
	AlertAlways  = "always"
	AlertUnusual = "unusual"
)

// AlertRule decides whether a cron-triggered report is pushed to the chat.
type AlertRule struct {
	Mode          string
	MinAbsPercent float64
}

// ShouldNotify reports whether res warrants a push notification. Failures
// are always pushed.
func (a AlertRule) ShouldNotify(res model.Result) bool {
	if !res.Success || res.Report == nil {
		return true
	}
	if a.Mode == AlertAlways {
		return true
	}
	r := res.Report
	if !r.StatisticsDefined {
		return false
	}
	return r.UsualClassification == model.UsualLarger &&
		math.Abs(r.Summary.Current) >= a.MinAbsPercent
}

// Scheduler manages the periodic watch cycle and on-demand reports.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.Sender
	Recorder  recorder.Recorder
	Alert     AlertRule
	Ctx       context.Context

	mu   sync.Mutex
	last *model.Result
}

// NewScheduler creates a new Scheduler. tn may be nil when notifications are disabled.
func NewScheduler(ctx context.Context, col *collector.Collector, tn notifier.Sender, rec recorder.Recorder, alert AlertRule) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  tn,
		Recorder:  rec,
		Alert:     alert,
		Ctx:       ctx,
	}
}

// RegisterAll registers the watch task.
func (s *Scheduler) RegisterAll(watchCron string) error {
	if _, err := s.Cron.AddFunc(watchCron, s.watchTask); err != nil {
		return fmt.Errorf("register watch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes one cycle immediately and always notifies (RUN_ON_START, -once).
func (s *Scheduler) RunNow(trigger string) model.Result {
	res, _ := s.runCycle(trigger, true)
	return res
}

// Last returns the most recent result, if any cycle has run.
func (s *Scheduler) Last() (model.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return model.Result{}, false
	}
	return *s.last, true
}

func (s *Scheduler) watchTask() {
	s.runCycle(TriggerCron, false)
}

// runCycle collects, evaluates, optionally notifies and records one run.
// force bypasses the alert rule.
func (s *Scheduler) runCycle(trigger string, force bool) (model.Result, bool) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("trigger", trigger).Logger()
	logger.Info().Msg("running watch cycle")

	res := s.Collector.Collect(s.Ctx)
	if res.Success && res.Report != nil {
		ev := logger.Info().Bool("statistics_defined", res.Report.StatisticsDefined)
		if v, ok := res.Report.CurrentPercentDiff.Get(); ok {
			ev = ev.Float64("current_pct", v).Str("classification", string(res.Report.Classification))
		}
		ev.Msg("watch cycle complete")
	} else {
		logger.Error().Str("error", res.Error).Interface("sources", res.SourceErrors).Msg("watch cycle failed")
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	notified := false
	if s.Notifier != nil && (force || s.Alert.ShouldNotify(res)) {
		if err := s.Notifier.SendWithRetry(s.Ctx, notifier.FormatReport(res), 3); err != nil {
			logger.Error().Err(err).Msg("send notification")
		} else {
			notified = true
		}
	}

	if err := s.Recorder.RecordReport(&recorder.ReportEvent{
		RunID:    runID,
		Trigger:  trigger,
		Result:   res,
		Notified: notified,
		At:       time.Now().UTC(),
	}); err != nil {
		logger.Error().Err(err).Msg("record report")
	}
	return res, notified
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/report":
		res, _ := s.runCycle(TriggerCommand, false)
		return notifier.FormatReport(res)
	case "/last":
		res, ok := s.Last()
		if !ok {
			return "No report yet. Send /report to run one now."
		}
		return notifier.FormatReport(res)
	default:
		return "Available commands:\n• /report - evaluate the spread now\n• /last - show the latest report"
	}
}
