package batch

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/number-console/internal/domain"
)

// CallFunc performs the remote call for one number and reports its
// terminal outcome. It never returns an error; failures are outcomes.
type CallFunc func(ctx context.Context, id string) domain.Outcome

// Executor runs a batch job to completion and returns its final progress.
// Only an empty eligible set is reported as an error.
type Executor interface {
	Run(ctx context.Context, job *domain.BatchJob, call CallFunc, tracker *Tracker) (domain.BatchProgress, error)
}

func requireEligible(job *domain.BatchJob, call CallFunc) error {
	if job == nil || len(job.Eligible) == 0 {
		return fmt.Errorf("%w: batch job has no eligible numbers", domain.ErrValidation)
	}
	if call == nil {
		return fmt.Errorf("%w: remote call is required", domain.ErrValidation)
	}
	return nil
}

func safeCall(ctx context.Context, call CallFunc, id string) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Failure(fmt.Sprintf("remote call panicked: %v", r))
		}
	}()
	return call(ctx, id)
}
