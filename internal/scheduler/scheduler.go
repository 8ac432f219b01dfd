package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Defaults for the harvest schedule.
const (
	DefaultCron     = "0 0,12 * * *"
	DefaultTimezone = "Europe/Madrid"
	DefaultTimeout  = 2 * time.Hour
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Config controls when and for how long the job runs.
type Config struct {
	Cron     string
	Timezone string
	Timeout  time.Duration
}

// Scheduler runs a job on a cron schedule. Runs never overlap: a tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	cfg       Config
	log       *zap.Logger
}

// New creates a new Scheduler.
func New(cfg Config, job Job, log *zap.Logger) (*Scheduler, error) {
	if cfg.Cron == "" {
		cfg.Cron = DefaultCron
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		job:       job,
		cfg:       cfg,
		log:       log,
	}, nil
}

// Start schedules the job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.cfg.Cron).SingletonMode().Do(s.runJob)
	if err != nil {
		return fmt.Errorf("scheduler: cron %q: %w", s.cfg.Cron, err)
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler started",
		zap.String("cron", s.cfg.Cron),
		zap.String("timezone", s.cfg.Timezone),
	)
	return nil
}

// NextRun reports when the job fires next.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runJob() {
	s.log.Info("scheduler: running harvest job")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if err := s.job.Run(ctx); err != nil {
		s.log.Error("scheduler: job failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Info("scheduler: completed harvest job", zap.Duration("elapsed", time.Since(start)))
}
