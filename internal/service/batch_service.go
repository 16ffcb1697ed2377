package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/number-console/internal/batch"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/observability"
	"github.com/kursadbilgin/number-console/internal/provider"
	"github.com/kursadbilgin/number-console/internal/queue"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/selection"
	"go.uber.org/zap"
)

// publishTimeout bounds the wait for a broker confirm. Job contexts never
// cancel, so the publish needs its own deadline.
const publishTimeout = 5 * time.Second

// ProgressStore shares job progress across API instances.
type ProgressStore interface {
	batch.ProgressSink
	Get(ctx context.Context, jobID string) (*domain.BatchProgress, error)
}

// Preview is the eligibility split shown before a job is confirmed.
type Preview struct {
	Action     domain.ActionKind
	Mode       domain.ExecutionMode
	Eligible   []string
	Ineligible []string
}

type jobEntry struct {
	session    string
	tracker    *batch.Tracker
	finishedAt *time.Time
}

// BatchService turns a session's selection into a batch job, runs it with
// the executor bound to the action and records the result.
type BatchService struct {
	selections *selection.Registry
	numbers    repository.NumberRepository
	batches    repository.BatchRepository
	dispatcher provider.Dispatcher
	publisher  queue.Publisher
	progress   ProgressStore
	executors  map[domain.ExecutionMode]batch.Executor
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	running string
	jobs    map[string]*jobEntry
	wg      sync.WaitGroup
}

func NewBatchService(
	selections *selection.Registry,
	numbers repository.NumberRepository,
	batches repository.BatchRepository,
	dispatcher provider.Dispatcher,
	publisher queue.Publisher,
	pacer batch.Pacer,
	logger *zap.Logger,
) (*BatchService, error) {
	if selections == nil {
		return nil, fmt.Errorf("selection registry is required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		selections: selections,
		numbers:    numbers,
		batches:    batches,
		dispatcher: dispatcher,
		publisher:  publisher,
		executors: map[domain.ExecutionMode]batch.Executor{
			domain.ModeParallelFanOut:      batch.NewFanOutExecutor(logger),
			domain.ModeSequentialThrottled: batch.NewThrottledExecutor(pacer, logger),
		},
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		jobs:   make(map[string]*jobEntry),
	}, nil
}

func (s *BatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetProgressStore publishes every progress step to store and lets Progress
// fall back to it for jobs this instance does not hold.
func (s *BatchService) SetProgressStore(store ProgressStore) {
	if s == nil {
		return
	}
	s.progress = store
}

func (s *BatchService) Preview(ctx context.Context, session string, action domain.ActionKind) (*Preview, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: invalid action %q", domain.ErrValidation, action)
	}

	selected, snapshot := s.selections.Get(session).Selection()
	eligible, ineligible := batch.Filter(selected, snapshot, action)

	return &Preview{
		Action:     action,
		Mode:       action.Mode(),
		Eligible:   eligible,
		Ineligible: ineligible,
	}, nil
}

// Start creates a job for the eligible part of the session's selection.
// Fan-out jobs run to completion before Start returns; throttled jobs run
// in the background and Start returns their initial progress.
func (s *BatchService) Start(
	ctx context.Context,
	session string,
	action domain.ActionKind,
	params domain.JobParams,
) (domain.BatchProgress, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !action.IsValid() {
		return domain.BatchProgress{}, fmt.Errorf("%w: invalid action %q", domain.ErrValidation, action)
	}

	session = selection.NormalizeSession(session)
	selected, snapshot := s.selections.Get(session).Selection()
	eligible, _ := batch.Filter(selected, snapshot, action)

	job := &domain.BatchJob{
		ID:        s.newID(),
		Action:    action,
		Eligible:  eligible,
		Params:    domain.JobParams{AccountID: strings.TrimSpace(params.AccountID)},
		StartedAt: s.now().UTC(),
	}
	if err := job.Validate(); err != nil {
		return domain.BatchProgress{}, err
	}

	var sinks []batch.ProgressSink
	if s.progress != nil {
		sinks = append(sinks, s.progress)
	}
	tracker := batch.NewTracker(job, s.logger, sinks...)

	if err := s.acquire(job.ID, session, tracker); err != nil {
		return domain.BatchProgress{}, err
	}

	record := &domain.BatchRecord{
		ID:         job.ID,
		Action:     job.Action,
		Session:    session,
		TotalCount: len(job.Eligible),
		Status:     domain.BatchStatusRunning,
		StartedAt:  job.StartedAt,
	}
	if err := s.batches.Create(ctx, record); err != nil {
		s.release(job.ID, false)
		return domain.BatchProgress{}, fmt.Errorf("failed to persist batch job: %w", err)
	}

	s.publishEvent(ctx, job, session, queue.EventBatchStarted, domain.BatchSummary{Total: len(job.Eligible)})

	s.logger.Info("batch job started",
		zap.String("jobId", job.ID),
		zap.String("session", session),
		zap.String("action", job.Action.String()),
		zap.String("mode", job.Action.Mode().String()),
		zap.Int("eligible", len(job.Eligible)),
	)

	call := s.callFor(job, snapshot)
	executor := s.executors[job.Action.Mode()]

	// Jobs cannot be canceled; a dropped request must not cut one short.
	jobCtx := observability.WithJobID(context.WithoutCancel(ctx), job.ID)

	if job.Action.Mode() == domain.ModeSequentialThrottled {
		tracker.Begin(jobCtx)
		initial := tracker.Snapshot()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(jobCtx, job, session, executor, call, tracker)
		}()
		return initial, nil
	}

	return s.run(jobCtx, job, session, executor, call, tracker), nil
}

// Progress returns the latest progress of a job.
func (s *BatchService) Progress(ctx context.Context, jobID string) (domain.BatchProgress, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.BatchProgress{}, fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	s.mu.Unlock()
	if ok {
		return entry.tracker.Snapshot(), nil
	}

	if s.progress == nil {
		return domain.BatchProgress{}, domain.ErrNotFound
	}
	stored, err := s.progress.Get(ctx, jobID)
	if err != nil {
		return domain.BatchProgress{}, err
	}
	return *stored, nil
}

// RunningJob reports the id of the job currently holding the run slot.
func (s *BatchService) RunningJob() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running, s.running != ""
}

// PruneFinished drops finished jobs that ended before cutoff and returns
// how many were removed. Running jobs are never pruned.
func (s *BatchService) PruneFinished(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.jobs {
		if entry.finishedAt == nil || !entry.finishedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}

// Wait blocks until background jobs finish or ctx is done.
func (s *BatchService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecoverInterrupted closes batch records a previous process left RUNNING.
// Call it at boot, before the service accepts jobs.
func (s *BatchService) RecoverInterrupted(ctx context.Context) (int64, error) {
	marked, err := s.batches.MarkInterrupted(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted batch jobs: %w", err)
	}
	if marked > 0 {
		s.logger.Warn("marked batch jobs left running by a previous process as interrupted",
			zap.Int64("count", marked),
		)
	}
	return marked, nil
}

func (s *BatchService) acquire(jobID string, session string, tracker *batch.Tracker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running != "" {
		return fmt.Errorf("%w: batch job %s is still running", domain.ErrConflict, s.running)
	}
	s.running = jobID
	s.jobs[jobID] = &jobEntry{session: session, tracker: tracker}
	return nil
}

// release frees the run slot. A job that never ran is forgotten entirely.
func (s *BatchService) release(jobID string, ran bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running == jobID {
		s.running = ""
	}
	entry, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if !ran {
		delete(s.jobs, jobID)
		return
	}
	finishedAt := s.now().UTC()
	entry.finishedAt = &finishedAt
}

func (s *BatchService) run(
	ctx context.Context,
	job *domain.BatchJob,
	session string,
	executor batch.Executor,
	call batch.CallFunc,
	tracker *batch.Tracker,
) domain.BatchProgress {
	logger := observability.WithContextLogger(s.logger, ctx)
	action := job.Action.String()

	s.metrics.IncBatchJobsInFlight(action)
	defer s.metrics.DecBatchJobsInFlight(action)
	defer s.release(job.ID, true)

	progress, err := executor.Run(ctx, job, call, tracker)
	if err != nil {
		// Only an empty job is rejected and Start never builds one.
		logger.Error("batch executor rejected job", zap.Error(err))
		return tracker.Snapshot()
	}

	summary := batch.Summarize(progress)
	finishedAt := s.now().UTC()
	if progress.FinishedAt != nil {
		finishedAt = *progress.FinishedAt
	}

	if err := s.batches.Complete(ctx, job.ID, summary, finishedAt); err != nil {
		logger.Error("failed to persist batch job result",
			zap.String("status", summary.Status().String()),
			zap.Error(err),
		)
	}

	s.publishEvent(ctx, job, session, queue.EventBatchCompleted, summary)
	s.metrics.IncBatchJob(action, summary.Status().String())

	if summary.FailureCount > 0 {
		logger.Warn("batch job finished with failures",
			zap.String("action", action),
			zap.Int("total", summary.Total),
			zap.Int("failed", summary.FailureCount),
		)
	}

	return progress
}

// callFor binds the remote call of job to the numbers of the snapshot the
// selection was made from.
func (s *BatchService) callFor(job *domain.BatchJob, snapshot domain.Snapshot) batch.CallFunc {
	numbers := make(map[string]domain.PhoneNumber, len(snapshot))
	for i := range snapshot {
		numbers[snapshot[i].ID] = snapshot[i]
	}
	action := job.Action.String()

	return func(ctx context.Context, id string) domain.Outcome {
		number, ok := numbers[id]
		if !ok {
			s.metrics.IncBatchItem(action, "invalid_request")
			return domain.Failure(fmt.Sprintf("number %s is not in the loaded page", id))
		}

		start := s.now()
		resp, err := s.dispatcher.Dispatch(ctx, job.Action, number, job.Params)
		s.metrics.ObserveBatchItemCallDuration(action, s.now().Sub(start))
		if err != nil {
			s.metrics.IncBatchItem(action, provider.FailureReason(err))
			return domain.Failure(err.Error())
		}
		s.metrics.IncBatchItem(action, "success")

		s.syncLocal(ctx, job, number)

		if resp == nil {
			return domain.Success("")
		}
		observability.WithContextLogger(s.logger, ctx).Debug("carrier call succeeded",
			zap.String("numberId", id),
			zap.String("action", action),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("carrierRequestId", resp.RequestID),
		)
		return domain.Success(resp.Body)
	}
}

// syncLocal mirrors a successful carrier change into the local pool. The
// outcome stays a success when the mirror write fails.
func (s *BatchService) syncLocal(ctx context.Context, job *domain.BatchJob, number domain.PhoneNumber) {
	if s.numbers == nil {
		return
	}

	var err error
	switch job.Action {
	case domain.ActionAssign:
		accountID := job.Params.AccountID
		err = s.numbers.UpdateStatus(ctx, number.ID, domain.NumberStatusAssigned, &accountID)
	case domain.ActionUnassign:
		err = s.numbers.UpdateStatus(ctx, number.ID, domain.NumberStatusAvailable, nil)
	case domain.ActionDelete:
		err = s.numbers.Delete(ctx, number.ID)
	default:
		return
	}
	if err != nil {
		observability.WithContextLogger(s.logger, ctx).Warn("failed to sync local number after carrier change",
			zap.String("numberId", number.ID),
			zap.String("action", job.Action.String()),
			zap.Error(err),
		)
	}
}

func (s *BatchService) publishEvent(
	ctx context.Context,
	job *domain.BatchJob,
	session string,
	event string,
	summary domain.BatchSummary,
) {
	if s.publisher == nil {
		return
	}

	msg := queue.BatchEventMessage{
		EventID:      s.newID(),
		JobID:        job.ID,
		Event:        event,
		Action:       job.Action,
		Session:      session,
		Total:        len(job.Eligible),
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		OccurredAt:   s.now().UTC(),
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(publishCtx, msg); err != nil {
		s.logger.Error("failed to publish batch event",
			zap.String("jobId", job.ID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
