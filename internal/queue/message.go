package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
)

const (
	EventBatchStarted   = "batch.started"
	EventBatchCompleted = "batch.completed"
)

// BatchEventMessage is the broker payload describing a batch lifecycle change.
type BatchEventMessage struct {
	EventID      string            `json:"eventId"`
	JobID        string            `json:"jobId"`
	Event        string            `json:"event"`
	Action       domain.ActionKind `json:"action"`
	Session      string            `json:"session"`
	Total        int               `json:"total"`
	SuccessCount int               `json:"successCount"`
	FailureCount int               `json:"failureCount"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

func (m BatchEventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if strings.TrimSpace(m.JobID) == "" {
		return fmt.Errorf("jobId is required")
	}
	switch m.Event {
	case EventBatchStarted, EventBatchCompleted:
	default:
		return fmt.Errorf("invalid event %q", m.Event)
	}
	if !m.Action.IsValid() {
		return fmt.Errorf("invalid action %q", m.Action)
	}
	if m.Total < 1 {
		return fmt.Errorf("total must be positive")
	}
	if m.SuccessCount < 0 || m.FailureCount < 0 || m.SuccessCount+m.FailureCount > m.Total {
		return fmt.Errorf("invalid outcome counts %d/%d for total %d", m.SuccessCount, m.FailureCount, m.Total)
	}
	if m.OccurredAt.IsZero() {
		return fmt.Errorf("occurredAt is required")
	}
	return nil
}
