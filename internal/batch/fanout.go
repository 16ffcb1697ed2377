package batch

import (
	"context"

	"github.com/kursadbilgin/number-console/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ Executor = (*FanOutExecutor)(nil)

// FanOutExecutor issues every call of a job at once and waits for all of
// them to settle. A failing call never cancels or skips its siblings.
type FanOutExecutor struct {
	logger *zap.Logger
}

func NewFanOutExecutor(logger *zap.Logger) *FanOutExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOutExecutor{logger: logger}
}

func (e *FanOutExecutor) Run(ctx context.Context, job *domain.BatchJob, call CallFunc, tracker *Tracker) (domain.BatchProgress, error) {
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

	outcomes := make([]domain.Outcome, len(job.Eligible))
	var g errgroup.Group
	for i, id := range job.Eligible {
		g.Go(func() error {
			outcomes[i] = safeCall(ctx, call, id)
			return nil
		})
	}
	_ = g.Wait()

	tracker.completeAll(ctx, job.Eligible, outcomes)
	tracker.finish(ctx)

	progress := tracker.Snapshot()
	summary := Summarize(progress)
	e.logger.Info("fan-out batch finished",
		zap.String("jobId", job.ID),
		zap.String("action", job.Action.String()),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
	)

	return progress, nil
}
