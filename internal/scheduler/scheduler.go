package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher runs one full widget refresh.
type Refresher interface {
	Refresh(ctx context.Context) string
}

// Config selects the schedule. Cron wins over Interval; with neither nothing runs.
type Config struct {
	Interval time.Duration
	Cron     string
	Timeout  time.Duration
	Location *time.Location
}

// Scheduler periodically refreshes the widget.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	cfg       Config
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config, refresher Refresher, logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	id := s.refresher.Refresh(ctx)
	s.logger.Info("scheduled refresh completed", "refresh_id", id, "duration", time.Since(start))
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run waits for the schedule.
func (s *Scheduler) Start() error {
	var job *gocron.Scheduler
	switch {
	case s.cfg.Cron != "":
		job = s.scheduler.Cron(s.cfg.Cron)
	case s.cfg.Interval > 0:
		job = s.scheduler.Every(s.cfg.Interval).WaitForSchedule()
	default:
		s.logger.Info("no refresh schedule configured; nothing to schedule")
		return nil
	}

	if _, err := job.SingletonMode().Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("refresh scheduled", "interval", s.cfg.Interval, "cron", s.cfg.Cron)
	return nil
}

// Running reports whether jobs are being dispatched.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
