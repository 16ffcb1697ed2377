package provider

import (
	"context"

	"github.com/kursadbilgin/number-console/internal/domain"
)

// Dispatcher is the outbound port to the carrier API that executes one
// administrative action on one number.
type Dispatcher interface {
	Dispatch(ctx context.Context, action domain.ActionKind, number domain.PhoneNumber, params domain.JobParams) (*Response, error)
}

// Response stores carrier call metadata; Body becomes the success payload
// and RequestID is the carrier's id for the call, logged with the outcome.
type Response struct {
	StatusCode int
	Body       string
	RequestID  string
}
