package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	infraredis "github.com/kursadbilgin/number-console/internal/infra/redis"
	goredis "github.com/redis/go-redis/v9"
)

func TestThrottledExecutorTakesALimiterSlotForEveryCall(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	limiter, err := infraredis.NewRedisRateLimiter(rdb, 1)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	fallback, err := NewJitterPacer(time.Hour, 2*time.Hour)
	if err != nil {
		t.Fatalf("NewJitterPacer() error = %v", err)
	}
	pacer, err := NewLimiterPacer(limiter, fallback)
	if err != nil {
		t.Fatalf("NewLimiterPacer() error = %v", err)
	}

	// Another console spent the slot just before this job starts.
	if err := limiter.Wait(context.Background(), domain.ActionReputationCheck.String()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	begin := time.Now()

	job := &domain.BatchJob{ID: "job-limit", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2", "n3"}}
	var starts []time.Time
	_, err = NewThrottledExecutor(pacer, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		starts = append(starts, time.Now())
		return domain.Success("ok")
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Scores are taken just before the Redis round trip that grants the slot.
	const window, slack = time.Second, 10 * time.Millisecond
	if len(starts) != 3 {
		t.Fatalf("calls = %d, want 3", len(starts))
	}
	if wait := starts[0].Sub(begin); wait < window-slack {
		t.Fatalf("first call started after %s, want it to wait for a limiter slot", wait)
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < window-slack {
			t.Fatalf("gap between call %d and %d = %s, want >= %s", i-1, i, gap, window)
		}
	}
}

func TestThrottledExecutorKeepsADelayWhenTheLimiterFails(t *testing.T) {
	t.Parallel()

	minDelay, maxDelay := 3*time.Second, 8*time.Second
	sleeper := &recordingSleeper{}
	fallback := newRecordingJitterPacer(t, minDelay, maxDelay, sleeper)

	pacer, err := NewLimiterPacer(&fakeRateLimiter{waitErr: errors.New("redis down")}, fallback)
	if err != nil {
		t.Fatalf("NewLimiterPacer() error = %v", err)
	}

	job := &domain.BatchJob{ID: "job-down", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2", "n3"}}
	calls := 0
	progress, err := NewThrottledExecutor(pacer, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		calls++
		return domain.Success("ok")
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 3 || progress.Completed != 3 {
		t.Fatalf("calls = %d completed = %d, want 3 and 3", calls, progress.Completed)
	}

	if len(sleeper.delays) != len(job.Eligible) {
		t.Fatalf("fallback delays = %d, want one per call", len(sleeper.delays))
	}
	for i, d := range sleeper.delays {
		if d < minDelay || d >= maxDelay {
			t.Fatalf("delay[%d] = %s, want within [%s, %s)", i, d, minDelay, maxDelay)
		}
	}
}
