package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
)

const scheduledSyncJob = "scheduled-sync"

// Scheduler runs one cron-scheduled task. The task never overlaps itself: a
// tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	task      func(context.Context)

	mu    sync.Mutex
	ctx   context.Context
	expr  string
	jobID uuid.UUID
}

// NewScheduler creates a scheduler that runs task on each tick.
func NewScheduler(task func(context.Context)) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create gocron scheduler").Build()
	}
	return &Scheduler{scheduler: s, task: task, ctx: context.Background()}, nil
}

// Start begins the scheduler. ctx is passed to every task run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for a running task.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Schedule replaces the current job with one for expr (five-field cron). An
// empty expr only removes the current job.
func (s *Scheduler) Schedule(expr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobID != uuid.Nil {
		if err := s.scheduler.RemoveJob(s.jobID); err != nil {
			slog.Warn("Failed to remove scheduled sync job", slog.String("cron", s.expr), logfields.Error(err))
		}
		s.jobID = uuid.Nil
		s.expr = ""
	}
	if expr == "" {
		return nil
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(s.run),
		gocron.WithName(scheduledSyncJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid schedule").
			WithContext("cron", expr).Build()
	}
	s.jobID = job.ID()
	s.expr = expr

	attrs := []any{slog.String("cron", expr)}
	if next, nerr := job.NextRun(); nerr == nil {
		attrs = append(attrs, slog.Time("next_run", next))
	}
	slog.Info("Scheduled periodic sync", attrs...)
	return nil
}

// Expr returns the active cron expression, or "" when nothing is scheduled.
func (s *Scheduler) Expr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.task(ctx)
}
