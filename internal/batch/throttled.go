package batch

import (
	"context"

	"github.com/kursadbilgin/number-console/internal/domain"
	"go.uber.org/zap"
)

var _ Executor = (*ThrottledExecutor)(nil)

// ThrottledExecutor runs the calls of a job one at a time in eligible
// order, pacing between consecutive items. A pacer that is also an Admitter
// is asked before every call instead. Progress is published before and
// after every call.
type ThrottledExecutor struct {
	pacer  Pacer
	logger *zap.Logger
}

func NewThrottledExecutor(pacer Pacer, logger *zap.Logger) *ThrottledExecutor {
	if pacer == nil {
		pacer = NoPacer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThrottledExecutor{pacer: pacer, logger: logger}
}

func (e *ThrottledExecutor) Run(ctx context.Context, job *domain.BatchJob, call CallFunc, tracker *Tracker) (domain.BatchProgress, error) {
	if err := requireEligible(job, call); err != nil {
		return domain.BatchProgress{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if tracker == nil {
		tracker = NewTracker(job, e.logger)
	}

	tracker.Begin(ctx)

	admitter, admitsEachCall := e.pacer.(Admitter)

	last := len(job.Eligible) - 1
	for i, id := range job.Eligible {
		if admitsEachCall {
			e.pace(ctx, job, admitter.Admit)
		}
		tracker.setCurrent(ctx, id)

		outcome := safeCall(ctx, call, id)
		tracker.complete(ctx, id, outcome)

		if !outcome.IsSuccess() {
			e.logger.Warn("throttled batch item failed",
				zap.String("jobId", job.ID),
				zap.String("numberId", id),
				zap.String("reason", outcome.Reason),
			)
		}

		if i == last || admitsEachCall {
			continue
		}
		e.pace(ctx, job, e.pacer.Pace)
	}

	tracker.finish(ctx)

	progress := tracker.Snapshot()
	summary := Summarize(progress)
	e.logger.Info("throttled batch finished",
		zap.String("jobId", job.ID),
		zap.String("action", job.Action.String()),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
	)

	return progress, nil
}

// pace only loses the delay on failure; the item after it still runs.
func (e *ThrottledExecutor) pace(ctx context.Context, job *domain.BatchJob, wait func(ctx context.Context, key string) error) {
	if err := wait(ctx, job.Action.String()); err != nil {
		e.logger.Warn("batch pacing failed",
			zap.String("jobId", job.ID),
			zap.String("action", job.Action.String()),
			zap.Error(err),
		)
	}
}
