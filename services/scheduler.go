package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the periodic deadline jobs.
type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

type SchedulerConfig struct {
	SweepInterval   time.Duration
	WarningInterval time.Duration
}

func NewScheduler(schedule ScheduleService, clock Clock, cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel, logger: logger}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) error
	}{
		{
			name:     "deadline-sweep",
			interval: cfg.SweepInterval,
			run: func(ctx context.Context) error {
				_, err := schedule.SweepExpired(ctx, clock.Now())
				return err
			},
		},
		{
			name:     "deadline-warnings",
			interval: cfg.WarningInterval,
			run: func(ctx context.Context) error {
				n, err := schedule.SendDeadlineWarnings(ctx, clock.Now())
				if n > 0 {
					logger.InfoContext(ctx, "deadline warnings sent", slog.Int("matches", n))
				}
				return err
			},
		},
	}

	for _, job := range jobs {
		_, err := sched.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				if err := job.run(s.ctx); err != nil {
					logger.Error("scheduled job failed", slog.String("job", job.name), slog.Any("error", err))
				}
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to register job %s: %w", job.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.sched.Jobs())))
}

func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	return names
}

func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
