package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/kursadbilgin/number-console/internal/domain"
)

// CarrierError classifies carrier API failures as transient/permanent.
type CarrierError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *CarrierError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "carrier error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *CarrierError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a failure was caused by a temporary condition
// such as throttling or a timeout. Batch jobs never retry; the flag only
// feeds logs and metrics.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// FailureReason maps an error to a low cardinality metrics label.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrValidation):
		return "invalid_request"
	case IsTransient(err):
		return "transient_error"
	default:
		return "permanent_error"
	}
}
