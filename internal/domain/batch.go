package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the processing state of a persisted batch job.
type BatchStatus string

const (
	BatchStatusRunning        BatchStatus = "RUNNING"
	BatchStatusCompleted      BatchStatus = "COMPLETED"
	BatchStatusPartialFailure BatchStatus = "PARTIAL_FAILURE"
	// BatchStatusInterrupted marks a job whose process stopped before it finished.
	BatchStatusInterrupted BatchStatus = "INTERRUPTED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusRunning, BatchStatusCompleted, BatchStatusPartialFailure, BatchStatusInterrupted:
		return true
	}
	return false
}

// JobParams carries action specific input shared by every item of a job.
type JobParams struct {
	AccountID string
}

// BatchJob is a single run of an action over an ordered eligible set.
type BatchJob struct {
	ID        string
	Action    ActionKind
	Eligible  []string
	Params    JobParams
	StartedAt time.Time
}

func (j *BatchJob) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: batch job is required", ErrValidation)
	}
	if !j.Action.IsValid() {
		return fmt.Errorf("%w: invalid action %q", ErrValidation, j.Action)
	}
	if len(j.Eligible) == 0 {
		return fmt.Errorf("%w: no eligible numbers for %s", ErrValidation, j.Action)
	}
	if j.Action == ActionAssign && strings.TrimSpace(j.Params.AccountID) == "" {
		return fmt.Errorf("%w: accountId is required for %s", ErrValidation, j.Action)
	}
	return nil
}

// OutcomeKind tags a per-item result.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "SUCCESS"
	OutcomeFailure OutcomeKind = "FAILURE"
)

// Outcome is the terminal result of one remote call.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Payload string      `json:"payload,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

func Success(payload string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Payload: payload}
}

func Failure(reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

func (o Outcome) IsSuccess() bool { return o.Kind == OutcomeSuccess }

// BatchProgress is a point-in-time view of a running or finished job.
// Values handed to observers are copies; Results is never shared with the executor.
type BatchProgress struct {
	JobID       string             `json:"jobId"`
	Action      ActionKind         `json:"action"`
	Mode        ExecutionMode      `json:"mode"`
	Total       int                `json:"total"`
	Completed   int                `json:"completed"`
	CurrentItem string             `json:"currentItem,omitempty"`
	Running     bool               `json:"running"`
	Results     map[string]Outcome `json:"results"`
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  *time.Time         `json:"finishedAt,omitempty"`
}

// BatchSummary holds the outcome counts derived from a progress value.
type BatchSummary struct {
	Total        int `json:"total"`
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// Status maps a finished summary to its persisted batch status.
func (s BatchSummary) Status() BatchStatus {
	if s.FailureCount > 0 {
		return BatchStatusPartialFailure
	}
	return BatchStatusCompleted
}

// BatchRecord is the persisted header of a batch job.
type BatchRecord struct {
	ID           string
	Action       ActionKind
	Session      string
	TotalCount   int
	SuccessCount int
	FailureCount int
	Status       BatchStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntry records a batch lifecycle event consumed from the broker.
type AuditEntry struct {
	ID           string
	JobID        string
	Event        string
	Action       ActionKind
	Session      string
	TotalCount   int
	SuccessCount int
	FailureCount int
	OccurredAt   time.Time
	CreatedAt    time.Time
}
