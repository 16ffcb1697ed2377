package batch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kursadbilgin/number-console/internal/ratelimit"
)

// Pacer delays the next item of a throttled job.
type Pacer interface {
	Pace(ctx context.Context, key string) error
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Pace(context.Context, string) error { return nil }

// JitterPacer sleeps for a duration drawn uniformly from [min, max).
type JitterPacer struct {
	min       time.Duration
	max       time.Duration
	randInt63 func(n int64) int64
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewJitterPacer(min, max time.Duration) (*JitterPacer, error) {
	if min <= 0 {
		return nil, fmt.Errorf("minimum delay must be positive, got %s", min)
	}
	if max <= min {
		return nil, fmt.Errorf("maximum delay %s must exceed minimum delay %s", max, min)
	}

	return &JitterPacer{
		min:       min,
		max:       max,
		randInt63: rand.Int63n,
		sleep:     sleepWithContext,
	}, nil
}

func (p *JitterPacer) Pace(ctx context.Context, _ string) error {
	return p.sleep(ctx, p.next())
}

func (p *JitterPacer) Bounds() (time.Duration, time.Duration) {
	return p.min, p.max
}

func (p *JitterPacer) next() time.Duration {
	return p.min + time.Duration(p.randInt63(int64(p.max-p.min)))
}

// Admitter is a Pacer that grants every call of a job, the first one
// included, instead of only sleeping in the gaps between calls.
type Admitter interface {
	Admit(ctx context.Context, key string) error
}

var _ Admitter = (*LimiterPacer)(nil)

// LimiterPacer takes a slot from a shared rate limiter before each call, so
// concurrent consoles draw from one budget. When the limiter cannot be
// reached it sleeps a fallback jitter delay instead.
type LimiterPacer struct {
	limiter  ratelimit.RateLimiter
	fallback *JitterPacer
}

func NewLimiterPacer(limiter ratelimit.RateLimiter, fallback *JitterPacer) (*LimiterPacer, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback pacer is required")
	}
	return &LimiterPacer{limiter: limiter, fallback: fallback}, nil
}

func (p *LimiterPacer) Admit(ctx context.Context, key string) error {
	err := p.limiter.Wait(ctx, key)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	if sleepErr := p.fallback.Pace(ctx, key); sleepErr != nil {
		return fmt.Errorf("rate limiter wait failed: %w", errors.Join(err, sleepErr))
	}
	return fmt.Errorf("rate limiter wait failed, used fallback delay: %w", err)
}

func (p *LimiterPacer) Pace(ctx context.Context, key string) error {
	return p.Admit(ctx, key)
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
