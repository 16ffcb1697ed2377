package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/provider"
	"github.com/kursadbilgin/number-console/internal/queue"
	"github.com/kursadbilgin/number-console/internal/repository"
)

var (
	_ repository.NumberRepository = (*fakeNumberRepo)(nil)
	_ repository.BatchRepository  = (*fakeBatchRepo)(nil)
	_ repository.AuditRepository  = (*fakeAuditRepo)(nil)
	_ provider.Dispatcher         = (*fakeDispatcher)(nil)
	_ queue.Publisher             = (*fakePublisher)(nil)
	_ queue.Consumer              = (*fakeConsumer)(nil)
	_ ProgressStore               = (*fakeProgressStore)(nil)
)

type fakeNumberRepo struct {
	listFn         func(ctx context.Context, params repository.ListParams) ([]domain.PhoneNumber, int64, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.PhoneNumber, error)
	updateStatusFn func(ctx context.Context, id string, status domain.NumberStatus, accountID *string) error
	deleteFn       func(ctx context.Context, id string) error
}

func (f *fakeNumberRepo) List(ctx context.Context, params repository.ListParams) ([]domain.PhoneNumber, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeNumberRepo) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNumberRepo) UpdateStatus(ctx context.Context, id string, status domain.NumberStatus, accountID *string) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status, accountID)
	}
	return nil
}

func (f *fakeNumberRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeBatchRepo struct {
	createFn   func(ctx context.Context, b *domain.BatchRecord) error
	getByIDFn  func(ctx context.Context, id string) (*domain.BatchRecord, error)
	completeFn func(ctx context.Context, id string, summary domain.BatchSummary, finishedAt time.Time) error
	markFn     func(ctx context.Context, startedBefore time.Time) (int64, error)
}

func (f *fakeBatchRepo) MarkInterrupted(ctx context.Context, startedBefore time.Time) (int64, error) {
	if f.markFn != nil {
		return f.markFn(ctx, startedBefore)
	}
	return 0, nil
}

func (f *fakeBatchRepo) Create(ctx context.Context, b *domain.BatchRecord) error {
	if f.createFn != nil {
		return f.createFn(ctx, b)
	}
	return nil
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, id string) (*domain.BatchRecord, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchRepo) Complete(ctx context.Context, id string, summary domain.BatchSummary, finishedAt time.Time) error {
	if f.completeFn != nil {
		return f.completeFn(ctx, id, summary, finishedAt)
	}
	return nil
}

type fakeAuditRepo struct {
	createFn      func(ctx context.Context, a *domain.AuditEntry) error
	listByJobIDFn func(ctx context.Context, jobID string) ([]domain.AuditEntry, error)
}

func (f *fakeAuditRepo) Create(ctx context.Context, a *domain.AuditEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeAuditRepo) ListByJobID(ctx context.Context, jobID string) ([]domain.AuditEntry, error) {
	if f.listByJobIDFn != nil {
		return f.listByJobIDFn(ctx, jobID)
	}
	return nil, nil
}

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, action domain.ActionKind, number domain.PhoneNumber, params domain.JobParams) (*provider.Response, error)
}

func (f *fakeDispatcher) Dispatch(
	ctx context.Context,
	action domain.ActionKind,
	number domain.PhoneNumber,
	params domain.JobParams,
) (*provider.Response, error) {
	if f.dispatchFn != nil {
		return f.dispatchFn(ctx, action, number, params)
	}
	return &provider.Response{StatusCode: 200}, nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, msg queue.BatchEventMessage) error
	closeFn   func() error
}

func (f *fakePublisher) Publish(ctx context.Context, msg queue.BatchEventMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

// fakeProgressStore keeps every published progress value in memory.
type fakeProgressStore struct {
	mu        sync.Mutex
	published []domain.BatchProgress
	latest    map[string]domain.BatchProgress
	getErr    error
}

func (f *fakeProgressStore) Publish(ctx context.Context, progress domain.BatchProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.latest == nil {
		f.latest = make(map[string]domain.BatchProgress)
	}
	f.published = append(f.published, progress)
	f.latest[progress.JobID] = progress
	return nil
}

func (f *fakeProgressStore) Get(ctx context.Context, jobID string) (*domain.BatchProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	progress, ok := f.latest[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &progress, nil
}

func (f *fakeProgressStore) all() []domain.BatchProgress {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.BatchProgress, len(f.published))
	copy(out, f.published)
	return out
}
