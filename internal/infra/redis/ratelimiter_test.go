package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterAllowWithinWindow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		2,
		time.Second,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	want := []bool{true, true, false}
	for i, expected := range want {
		allowed, err := limiter.Allow(context.Background(), "REPUTATION_CHECK")
		if err != nil {
			t.Fatalf("Allow() call %d error = %v", i+1, err)
		}
		if allowed != expected {
			t.Fatalf("Allow() call %d = %v, want %v", i+1, allowed, expected)
		}
	}

	now = now.Add(time.Second)
	allowed, err := limiter.Allow(context.Background(), "reputation_check")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("next window should allow the call")
	}
}

func TestRedisRateLimiterSpacesCallsAcrossSecondBoundaries(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_050, 0).Add(900 * time.Millisecond)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		time.Second,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{advance: 0, want: true},
		{advance: 100 * time.Millisecond, want: false},
		{advance: 899 * time.Millisecond, want: false},
		{advance: time.Millisecond, want: true},
	}
	for i, step := range steps {
		now = now.Add(step.advance)
		allowed, err := limiter.Allow(context.Background(), "reputation_check")
		if err != nil {
			t.Fatalf("Allow() step %d error = %v", i, err)
		}
		if allowed != step.want {
			t.Fatalf("Allow() step %d at %s = %v, want %v", i, now.Format("15:04:05.000"), allowed, step.want)
		}
	}
}

func TestRedisRateLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		time.Second,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for _, key := range []string{"reputation_check", "delete"} {
		allowed, err := limiter.Allow(context.Background(), key)
		if err != nil {
			t.Fatalf("Allow(%s) error = %v", key, err)
		}
		if !allowed {
			t.Fatalf("%s should be allowed on first request", key)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "reputation_check")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("second reputation_check request should be rejected")
	}
}

func TestRedisRateLimiterWindowKeyExpires(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)

	now := time.Unix(1_700_000_150, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		2*time.Second,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "reputation_check"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	key := limiter.windowKey("reputation_check")
	if !mr.Exists(key) {
		t.Fatalf("expected window key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("window key ttl = %s, want (0, 2s]", ttl)
	}
}

func TestRedisRateLimiterAllowRequiresKey(t *testing.T) {
	t.Parallel()

	limiter, err := NewRedisRateLimiter(newTestRedisClient(t), 1)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank key")
	}
	if _, err := NewRedisRateLimiter(nil, 1); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestRedisRateLimiterWait(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	var slept []time.Duration
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		time.Second,
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			if len(slept) == 2 {
				now = now.Add(time.Second)
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if err := limiter.Wait(context.Background(), "reputation_check"); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("first Wait() slept %d times, want 0", len(slept))
	}

	if err := limiter.Wait(context.Background(), "reputation_check"); err != nil {
		t.Fatalf("second Wait() error = %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("second Wait() slept %d times, want 2", len(slept))
	}
	if slept[0] != backoffStep || slept[1] != 2*backoffStep {
		t.Fatalf("backoff = %v, want growing steps of %s", slept, backoffStep)
	}
}

func TestRedisRateLimiterWaitContextDeadline(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_300, 0)
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		time.Second,
		func() time.Time { return now },
		sleepWithContext,
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if err := limiter.Wait(context.Background(), "reputation_check"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, "reputation_check")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	_, rdb := newTestRedis(t)
	return rdb
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}
