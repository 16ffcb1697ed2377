package ratelimit

import "context"

// RateLimiter controls call throughput per key, e.g. per batch action.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}
