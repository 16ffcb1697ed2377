package batch

import "github.com/kursadbilgin/number-console/internal/domain"

// Summarize counts the outcomes present in progress. It accepts partial
// progress of a running job.
func Summarize(progress domain.BatchProgress) domain.BatchSummary {
	summary := domain.BatchSummary{Total: progress.Total}
	for _, outcome := range progress.Results {
		if outcome.IsSuccess() {
			summary.SuccessCount++
			continue
		}
		summary.FailureCount++
	}
	return summary
}
