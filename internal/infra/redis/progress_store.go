package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	progressKeyPrefix  = "batch:progress"
	defaultProgressTTL = time.Hour
)

// ProgressStore keeps the latest progress of each job in Redis so any API
// instance can answer a poll.
type ProgressStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewProgressStore(client *goredis.Client, ttl time.Duration) (*ProgressStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}

	return &ProgressStore{client: client, ttl: ttl}, nil
}

// Publish overwrites the stored progress for the job.
func (s *ProgressStore) Publish(ctx context.Context, progress domain.BatchProgress) error {
	if strings.TrimSpace(progress.JobID) == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}

	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := s.client.Set(ctx, progressKey(progress.JobID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Get(ctx context.Context, jobID string) (*domain.BatchProgress, error) {
	payload, err := s.client.Get(ctx, progressKey(jobID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var progress domain.BatchProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	if progress.Results == nil {
		progress.Results = make(map[string]domain.Outcome)
	}

	return &progress, nil
}

func progressKey(jobID string) string {
	return progressKeyPrefix + ":" + strings.TrimSpace(jobID)
}
