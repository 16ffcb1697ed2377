package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/number-console/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultCallsPerWindow int64 = 1
	defaultWindow               = time.Second
	rateLimitKeyPrefix          = "ratelimit:carrier"
	backoffStep                 = 25 * time.Millisecond
	backoffMax                  = 250 * time.Millisecond
)

// Keeps one sorted-set member per granted call, scored by its time in
// milliseconds. Members a full window old are dropped before counting, so
// no span of one window ever holds more than the limit.
var allowScript = goredis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is a sliding-window limiter shared by every console
// instance that talks to the same carrier account.
type RedisRateLimiter struct {
	client         *goredis.Client
	callsPerWindow int64
	window         time.Duration
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
	script         *goredis.Script
}

// NewRedisRateLimiter allows callsPerSecond carrier calls per key each second.
func NewRedisRateLimiter(client *goredis.Client, callsPerSecond int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(
		client,
		int64(callsPerSecond),
		defaultWindow,
		time.Now,
		sleepWithContext,
	)
}

func newRedisRateLimiter(
	client *goredis.Client,
	callsPerWindow int64,
	window time.Duration,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if callsPerWindow <= 0 {
		callsPerWindow = defaultCallsPerWindow
	}
	if window < time.Millisecond {
		window = defaultWindow
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:         client,
		callsPerWindow: callsPerWindow,
		window:         window,
		now:            nowFn,
		sleep:          sleepFn,
		script:         allowScript,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false, fmt.Errorf("rate limit key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	nowMs := r.now().UTC().UnixMilli()
	result, err := r.script.Run(
		ctx,
		r.client,
		[]string{r.windowKey(normalizedKey)},
		nowMs,
		nowMs-r.window.Milliseconds(),
		r.callsPerWindow,
		uuid.NewString(),
		r.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}

// Wait blocks until a call for key fits the window ending now.
func (r *RedisRateLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := r.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff = min(backoff+backoffStep, backoffMax)
	}
}

func (r *RedisRateLimiter) windowKey(key string) string {
	return fmt.Sprintf("%s:%s", rateLimitKeyPrefix, key)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
