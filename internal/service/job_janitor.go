package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultJanitorInterval  = time.Minute
	defaultJanitorRetention = time.Hour
)

// JobPruner forgets finished jobs.
type JobPruner interface {
	PruneFinished(cutoff time.Time) int
}

// JobJanitor periodically drops finished jobs from memory once their
// retention has passed. Their final progress stays readable from the
// progress store until it expires there.
type JobJanitor struct {
	jobs      JobPruner
	logger    *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewJobJanitor(
	jobs JobPruner,
	interval time.Duration,
	retention time.Duration,
	logger *zap.Logger,
) (*JobJanitor, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job pruner is required")
	}
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	if retention <= 0 {
		retention = defaultJanitorRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JobJanitor{
		jobs:      jobs,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *JobJanitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *JobJanitor) sweep() int {
	removed := j.jobs.PruneFinished(j.now().Add(-j.retention))
	if removed > 0 {
		j.logger.Info("pruned finished batch jobs", zap.Int("removed", removed))
	}
	return removed
}
