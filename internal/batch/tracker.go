package batch

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	"go.uber.org/zap"
)

// ProgressSink receives a copy of the progress after every step of a job.
type ProgressSink interface {
	Publish(ctx context.Context, progress domain.BatchProgress) error
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(ctx context.Context, progress domain.BatchProgress) error

func (f SinkFunc) Publish(ctx context.Context, progress domain.BatchProgress) error {
	return f(ctx, progress)
}

// Tracker owns the mutable progress of one job. Only the executor running
// the job writes to it; readers get copies through Snapshot or the sinks.
type Tracker struct {
	mu       sync.RWMutex
	progress domain.BatchProgress
	sinks    []ProgressSink
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(job *domain.BatchJob, logger *zap.Logger, sinks ...ProgressSink) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	progress := domain.BatchProgress{Results: make(map[string]domain.Outcome)}
	if job != nil {
		progress.JobID = job.ID
		progress.Action = job.Action
		progress.Mode = job.Action.Mode()
		progress.Total = len(job.Eligible)
		progress.StartedAt = job.StartedAt
	}

	return &Tracker{
		progress: progress,
		sinks:    sinks,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot returns a deep copy of the current progress.
func (t *Tracker) Snapshot() domain.BatchProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.copyLocked()
}

// Begin marks the job running with nothing completed. Executors call it
// first; a caller handing the job to a background run may call it earlier
// so that polls issued before the run starts already see a running job.
// Begin on a running tracker is a no-op and publishes nothing.
func (t *Tracker) Begin(ctx context.Context) {
	t.apply(ctx, func(p *domain.BatchProgress) bool {
		if p.Running {
			return false
		}
		p.Running = true
		p.Completed = 0
		p.CurrentItem = ""
		if p.StartedAt.IsZero() {
			p.StartedAt = t.now().UTC()
		}
		return true
	})
}

func (t *Tracker) setCurrent(ctx context.Context, id string) {
	t.update(ctx, func(p *domain.BatchProgress) {
		p.CurrentItem = id
	})
}

// complete records the outcome of id and counts it as processed. An id
// that already has an outcome keeps its first one.
func (t *Tracker) complete(ctx context.Context, id string, outcome domain.Outcome) {
	t.update(ctx, func(p *domain.BatchProgress) {
		if _, exists := p.Results[id]; !exists {
			p.Results[id] = outcome
		}
		if p.Completed < p.Total {
			p.Completed++
		}
	})
}

// completeAll records every outcome at once and moves the counter straight
// to the total.
func (t *Tracker) completeAll(ctx context.Context, ids []string, outcomes []domain.Outcome) {
	t.update(ctx, func(p *domain.BatchProgress) {
		for i, id := range ids {
			if _, exists := p.Results[id]; !exists {
				p.Results[id] = outcomes[i]
			}
		}
		p.Completed = p.Total
	})
}

func (t *Tracker) finish(ctx context.Context) {
	t.update(ctx, func(p *domain.BatchProgress) {
		p.Running = false
		p.CurrentItem = ""
		p.Completed = p.Total
		finishedAt := t.now().UTC()
		p.FinishedAt = &finishedAt
	})
}

func (t *Tracker) update(ctx context.Context, mutate func(p *domain.BatchProgress)) {
	t.apply(ctx, func(p *domain.BatchProgress) bool {
		mutate(p)
		return true
	})
}

// apply publishes only when mutate reports a change.
func (t *Tracker) apply(ctx context.Context, mutate func(p *domain.BatchProgress) bool) {
	t.mu.Lock()
	if !mutate(&t.progress) {
		t.mu.Unlock()
		return
	}
	snapshot := t.copyLocked()
	t.mu.Unlock()

	for _, sink := range t.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, snapshot); err != nil {
			t.logger.Warn("failed to publish batch progress",
				zap.String("jobId", snapshot.JobID),
				zap.Int("completed", snapshot.Completed),
				zap.Error(err),
			)
		}
	}
}

func (t *Tracker) copyLocked() domain.BatchProgress {
	cp := t.progress
	cp.Results = make(map[string]domain.Outcome, len(t.progress.Results))
	for id, outcome := range t.progress.Results {
		cp.Results[id] = outcome
	}
	if t.progress.FinishedAt != nil {
		finishedAt := *t.progress.FinishedAt
		cp.FinishedAt = &finishedAt
	}
	return cp
}
