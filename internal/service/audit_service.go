package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/observability"
	"github.com/kursadbilgin/number-console/internal/queue"
	"github.com/kursadbilgin/number-console/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minAuditConcurrency = 1

// AuditService writes every batch lifecycle event to the audit trail.
type AuditService struct {
	audits      repository.AuditRepository
	consumer    queue.Consumer
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewAuditService(
	audits repository.AuditRepository,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*AuditService, error) {
	if audits == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minAuditConcurrency {
		concurrency = minAuditConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuditService{
		audits:      audits,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *AuditService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the batch event queue until ctx is canceled.
func (s *AuditService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("audit consumer started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.BatchEventsQueue),
			)

			if err := s.consumer.Consume(groupCtx, queue.BatchEventsQueue, s.processMessage); err != nil {
				s.logger.Error("audit consumer stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("audit consumer stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *AuditService) processMessage(ctx context.Context, msg queue.BatchEventMessage) error {
	entry := &domain.AuditEntry{
		ID:           msg.EventID,
		JobID:        msg.JobID,
		Event:        msg.Event,
		Action:       msg.Action,
		Session:      msg.Session,
		TotalCount:   msg.Total,
		SuccessCount: msg.SuccessCount,
		FailureCount: msg.FailureCount,
		OccurredAt:   msg.OccurredAt.UTC(),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.audits.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	s.metrics.IncAuditEvent(msg.Event)
	s.logger.Debug("batch event audited",
		zap.String("jobId", msg.JobID),
		zap.String("event", msg.Event),
	)
	return nil
}
