package domain

import (
	"fmt"
	"strings"
)

// ActionKind is an administrative action applied to a set of numbers.
type ActionKind string

const (
	ActionAssign          ActionKind = "ASSIGN"
	ActionUnassign        ActionKind = "UNASSIGN"
	ActionDelete          ActionKind = "DELETE"
	ActionReputationCheck ActionKind = "REPUTATION_CHECK"
)

func (a ActionKind) String() string { return string(a) }

func (a ActionKind) IsValid() bool {
	switch a {
	case ActionAssign, ActionUnassign, ActionDelete, ActionReputationCheck:
		return true
	}
	return false
}

func ParseActionKindFromString(s string) (ActionKind, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	a := ActionKind(normalized)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: invalid action %q", ErrValidation, s)
	}
	return a, nil
}

// ExecutionMode selects how a batch job schedules its remote calls.
type ExecutionMode string

const (
	ModeParallelFanOut      ExecutionMode = "PARALLEL_FAN_OUT"
	ModeSequentialThrottled ExecutionMode = "SEQUENTIAL_THROTTLED"
)

func (m ExecutionMode) String() string { return string(m) }

// Mode returns the execution mode bound to the action. The reputation
// lookup goes through a rate limited dependency and therefore runs one
// number at a time.
func (a ActionKind) Mode() ExecutionMode {
	if a == ActionReputationCheck {
		return ModeSequentialThrottled
	}
	return ModeParallelFanOut
}

// Eligible reports whether a number in the given status may take part in the action.
func (a ActionKind) Eligible(status NumberStatus) bool {
	switch a {
	case ActionAssign:
		return status == NumberStatusAvailable
	case ActionUnassign:
		return status == NumberStatusAssigned
	case ActionDelete:
		return status != NumberStatusAssigned
	case ActionReputationCheck:
		return true
	}
	return false
}
