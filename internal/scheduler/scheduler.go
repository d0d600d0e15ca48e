package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/user/finclaw/internal/types"
)

// Job is a named unit of recurring work with a cron schedule.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler drives recurring background work: provider syncs per owner and
// the embedding backfill. Jobs run on cron schedules and failures are
// logged, never fatal.
type Scheduler struct {
	jobs []Job
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler with no jobs.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cronParser)),
	}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// AddSyncJobs registers a per-owner sync job and a backfill job on the
// given schedules. syncOwner runs once per owner each tick; backfill runs
// once per tick.
func (s *Scheduler) AddSyncJobs(owners []types.OwnerID, syncSchedule, backfillSchedule string,
	syncOwner func(ctx context.Context, owner types.OwnerID) error,
	backfill func(ctx context.Context) error,
) {
	s.Add(Job{
		Name:     "provider-sync",
		Schedule: syncSchedule,
		Run: func(ctx context.Context) error {
			var firstErr error
			for _, owner := range owners {
				if err := syncOwner(ctx, owner); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	})
	s.Add(Job{
		Name:     "embedding-backfill",
		Schedule: backfillSchedule,
		Run:      backfill,
	})
}

// Start registers all jobs as cron entries and starts the ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		if job.Schedule == "" {
			continue
		}

		name := job.Name
		run := job.Run
		schedule := job.Schedule

		_, err := s.cron.AddFunc(schedule, func() {
			slog.Info("cron firing job", "name", name)
			if err := run(s.ctx); err != nil {
				slog.Error("scheduled job failed", "name", name, "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", schedule, "error", err)
			continue
		}
		slog.Info("scheduled job", "name", name, "schedule", schedule)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron ticker and cancels running jobs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}
