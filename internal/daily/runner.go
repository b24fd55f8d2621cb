package daily

import (
	"context"
	"time"

	"go.uber.org/zap"

	"root/internal/model"
)

// Job is the work fired at each boundary.
type Job interface {
	RunDay(ctx context.Context, day time.Time)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context, day time.Time)

func (f JobFunc) RunDay(ctx context.Context, day time.Time) { f(ctx, day) }

// Runner fires a Job once per local day at a fixed wall-clock boundary.
type Runner struct {
	job    Job
	clock  Clock
	loc    *time.Location
	offset time.Duration
	logger *zap.Logger
}

// NewRunner creates a runner that fires job at midnight plus offset in loc.
func NewRunner(job Job, clock Clock, loc *time.Location, offset time.Duration, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{job: job, clock: clock, loc: loc, offset: offset, logger: logger}
}

// RunForever sleeps until each boundary and fires the job for the day the boundary
// falls on. It returns only when ctx is cancelled. A failing or panicking job does not
// end the loop.
func (r *Runner) RunForever(ctx context.Context) error {
	for {
		now := r.clock.Now()
		next := NextBoundary(now, r.loc, r.offset)
		r.logger.Info("next daily batch scheduled", zap.Time("at", next), zap.Duration("in", next.Sub(now)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(next.Sub(now)):
		}
		// select picks at random when both are ready.
		if err := ctx.Err(); err != nil {
			return err
		}
		r.fire(ctx, DayOf(next, r.loc))
	}
}

func (r *Runner) fire(ctx context.Context, day time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("daily job panicked", zap.String("date", day.Format(model.DateLayout)), zap.Any("panic", rec))
		}
	}()
	r.job.RunDay(ctx, day)
}
