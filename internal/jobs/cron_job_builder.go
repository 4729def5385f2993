package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
)

// CronJobBuilder adapts Jobs to cron.Job, adding logging and a per-run timeout.
type CronJobBuilder struct {
	logger  *zap.Logger
	timeout time.Duration
	base    context.Context
}

// NewCronJobBuilder creates a builder whose runs derive from base and stop after timeout.
// A zero timeout means no deadline.
func NewCronJobBuilder(base context.Context, logger *zap.Logger, timeout time.Duration) *CronJobBuilder {
	if base == nil {
		base = context.Background()
	}
	return &CronJobBuilder{
		logger:  logging.OrNop(logger),
		timeout: timeout,
		base:    base,
	}
}

// Build wraps job so cron can run it.
func (b *CronJobBuilder) Build(job Job) cron.Job {
	jobName := job.Name()
	return cronJobAdapterFunc(func() {
		ctx := b.base
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}

		start := time.Now()
		b.logger.Debug("job started", zap.String("job_name", jobName))
		if err := job.Run(ctx); err != nil {
			b.logger.Error("job failed", zap.String("job_name", jobName), zap.Error(err))
		}
		b.logger.Debug("job finished",
			zap.String("job_name", jobName),
			zap.Duration("cost", time.Since(start)))
	})
}

type cronJobAdapterFunc func()

func (c cronJobAdapterFunc) Run() {
	c()
}

// NewScheduler creates a cron scheduler that logs through logger and never overlaps runs
// of the same job.
func NewScheduler(logger *zap.Logger) *cron.Cron {
	cronLogger := cron.PrintfLogger(logging.NewPrintfAdapter(logger))
	return cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
}

// Register adds job to c. schedule is a cron expression such as "@every 5m" or "*/10 * * * *".
func (b *CronJobBuilder) Register(c *cron.Cron, schedule string, job Job) (cron.EntryID, error) {
	id, err := c.AddJob(schedule, b.Build(job))
	if err != nil {
		return 0, fmt.Errorf("schedule %s with %q: %w", job.Name(), schedule, err)
	}
	b.logger.Info("job scheduled", zap.String("job_name", job.Name()), zap.String("schedule", schedule))
	return id, nil
}
