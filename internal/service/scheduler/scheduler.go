package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"MarketRegime/internal/domain/models"
	"MarketRegime/internal/usecase"
	"MarketRegime/pkg/config"
	applogger "MarketRegime/pkg/logger"
)

// RequestedBy tags runs started by the cron trigger.
const RequestedBy = "schedule"

// Scheduler fires a full-universe pipeline run on a cron expression,
// evaluated in the configured market timezone.
type Scheduler struct {
	runner  usecase.Runner
	cron    *cron.Cron
	expr    string
	timeout time.Duration
	l       *applogger.Logger
}

// New parses the schedule up front so a bad expression fails at startup.
func New(cfg config.ScheduleConfig, runTimeout time.Duration, runner usecase.Runner, l *applogger.Logger) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("schedule timezone: %w", err)
		}
	}

	s := &Scheduler{
		runner:  runner,
		expr:    cfg.Cron,
		timeout: runTimeout,
		l:       l.With(applogger.String("component", "scheduler")),
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.l}), cron.SkipIfStillRunning(cronLogger{s.l})),
	)
	if _, err := s.cron.AddFunc(cfg.Cron, s.fire); err != nil {
		return nil, fmt.Errorf("schedule cron %q: %w", cfg.Cron, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("cron", s.expr), applogger.Time("next", s.Next()))
}

// Stop waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next is the next fire time, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) fire() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.runner.RunNow(ctx, models.RunRequest{RequestedBy: RequestedBy})
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		s.l.Warn("scheduled run skipped, another run is in progress")
	case err != nil:
		s.l.Error("scheduled run failed", applogger.Error(err))
	default:
		s.l.Info("scheduled run completed",
			applogger.String("run_id", summary.RunID),
			applogger.Int("ok", summary.OK),
			applogger.Int("skipped", summary.Skipped),
			applogger.Int("failed", summary.Failed),
		)
	}
}

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kv(keysAndValues), applogger.Error(err))...)
}

func kv(pairs []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(pairs[i]), pairs[i+1]))
	}
	return fields
}
