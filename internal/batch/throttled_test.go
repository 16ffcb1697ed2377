package batch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/number-console/internal/domain"
	"go.uber.org/zap"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func newRecordingJitterPacer(t *testing.T, min, max time.Duration, sleeper *recordingSleeper) *JitterPacer {
	t.Helper()

	pacer, err := NewJitterPacer(min, max)
	if err != nil {
		t.Fatalf("NewJitterPacer() error = %v", err)
	}
	pacer.sleep = sleeper.sleep
	return pacer
}

func TestThrottledExecutorScenarioReputationCheck(t *testing.T) {
	t.Parallel()

	minDelay, maxDelay := 3000*time.Millisecond, 8000*time.Millisecond
	sleeper := &recordingSleeper{}
	pacer := newRecordingJitterPacer(t, minDelay, maxDelay, sleeper)

	job := &domain.BatchJob{
		ID:       "job-b",
		Action:   domain.ActionReputationCheck,
		Eligible: []string{"n1", "n2", "n3", "n4"},
	}

	var mu sync.Mutex
	var snapshots []domain.BatchProgress
	sink := SinkFunc(func(ctx context.Context, p domain.BatchProgress) error {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, p)
		return nil
	})

	var order []string
	call := func(ctx context.Context, id string) domain.Outcome {
		order = append(order, id)
		if id == "n2" {
			return domain.Failure("lookup quota exceeded")
		}
		return domain.Success(`{"score":90}`)
	}

	tracker := NewTracker(job, zap.NewNop(), sink)
	progress, err := NewThrottledExecutor(pacer, zap.NewNop()).Run(context.Background(), job, call, tracker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(order, job.Eligible) {
		t.Fatalf("call order = %v, want %v", order, job.Eligible)
	}

	if len(sleeper.delays) != 3 {
		t.Fatalf("delays = %d, want 3", len(sleeper.delays))
	}
	for i, d := range sleeper.delays {
		if d < minDelay || d >= maxDelay {
			t.Fatalf("delay[%d] = %s, want within [%s, %s)", i, d, minDelay, maxDelay)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	var distinct []int
	prev := -1
	for _, s := range snapshots {
		if s.Completed < prev {
			t.Fatalf("completed decreased from %d to %d", prev, s.Completed)
		}
		if s.Completed != prev {
			distinct = append(distinct, s.Completed)
			prev = s.Completed
		}
	}
	if !reflect.DeepEqual(distinct, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("completed sequence = %v, want [0 1 2 3 4]", distinct)
	}

	last := snapshots[len(snapshots)-1]
	if last.Running || last.CurrentItem != "" {
		t.Fatalf("final snapshot running=%v currentItem=%q, want stopped and cleared", last.Running, last.CurrentItem)
	}

	summary := Summarize(progress)
	if summary.Total != 4 || summary.SuccessCount != 3 || summary.FailureCount != 1 {
		t.Fatalf("summary = %+v, want 4/3/1", summary)
	}
}

func TestThrottledExecutorPublishesCurrentItemBeforeEachCall(t *testing.T) {
	t.Parallel()

	job := &domain.BatchJob{ID: "job-cur", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2", "n3"}}

	var tracker *Tracker
	call := func(ctx context.Context, id string) domain.Outcome {
		current := tracker.Snapshot()
		if current.CurrentItem != id {
			return domain.Failure("current item " + current.CurrentItem + " while calling " + id)
		}
		if !current.Running {
			return domain.Failure("tracker not running during call")
		}
		if _, done := current.Results[id]; done {
			return domain.Failure("outcome recorded before call")
		}
		return domain.Success("ok")
	}
	tracker = NewTracker(job, nil)

	progress, err := NewThrottledExecutor(NoPacer{}, nil).Run(context.Background(), job, call, tracker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for id, outcome := range progress.Results {
		if !outcome.IsSuccess() {
			t.Fatalf("%s: %s", id, outcome.Reason)
		}
	}
}

func TestThrottledExecutorSingleItemHasNoDelay(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	pacer := newRecordingJitterPacer(t, time.Second, 2*time.Second, sleeper)
	job := &domain.BatchJob{ID: "job-one", Action: domain.ActionReputationCheck, Eligible: []string{"n1"}}

	progress, err := NewThrottledExecutor(pacer, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		return domain.Success("ok")
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sleeper.delays) != 0 {
		t.Fatalf("delays = %v, want none after the final item", sleeper.delays)
	}
	if progress.Completed != 1 || progress.Running {
		t.Fatalf("progress = %+v, want completed=1 and stopped", progress)
	}
}

func TestThrottledExecutorContinuesAfterFailuresAndPacerErrors(t *testing.T) {
	t.Parallel()

	job := &domain.BatchJob{ID: "job-err", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2", "n3"}}

	pacer := pacerFunc(func(ctx context.Context, key string) error {
		return errors.New("limiter unavailable")
	})

	calls := 0
	progress, err := NewThrottledExecutor(pacer, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		calls++
		return domain.Failure("timeout")
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want every item attempted once", calls)
	}
	if progress.Completed != 3 || len(progress.Results) != 3 {
		t.Fatalf("progress = %+v, want 3 completed results", progress)
	}
}

func TestThrottledExecutorWaitsBetweenCallStarts(t *testing.T) {
	t.Parallel()

	minDelay, maxDelay := 20*time.Millisecond, 40*time.Millisecond
	pacer, err := NewJitterPacer(minDelay, maxDelay)
	if err != nil {
		t.Fatalf("NewJitterPacer() error = %v", err)
	}

	job := &domain.BatchJob{ID: "job-time", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2", "n3"}}
	var starts []time.Time
	_, err = NewThrottledExecutor(pacer, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		starts = append(starts, time.Now())
		return domain.Success("ok")
	}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < minDelay {
			t.Fatalf("gap between call %d and %d = %s, want >= %s", i-1, i, gap, minDelay)
		}
	}
}

func TestThrottledExecutorRejectsEmptyJob(t *testing.T) {
	t.Parallel()

	_, err := NewThrottledExecutor(nil, nil).Run(context.Background(), &domain.BatchJob{ID: "empty", Action: domain.ActionReputationCheck}, func(ctx context.Context, id string) domain.Outcome {
		t.Fatal("no remote call may be issued for an empty job")
		return domain.Outcome{}
	}, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Run() error = %v, want ErrValidation", err)
	}
}

type pacerFunc func(ctx context.Context, key string) error

func (f pacerFunc) Pace(ctx context.Context, key string) error { return f(ctx, key) }

func TestThrottledExecutorDoesNotRestartAnEarlyBegunTracker(t *testing.T) {
	t.Parallel()

	job := &domain.BatchJob{ID: "job-begun", Action: domain.ActionReputationCheck, Eligible: []string{"n1", "n2"}}

	var zeros int
	sink := SinkFunc(func(ctx context.Context, p domain.BatchProgress) error {
		if p.Running && p.Completed == 0 && p.CurrentItem == "" {
			zeros++
		}
		return nil
	})

	tracker := NewTracker(job, nil, sink)
	tracker.Begin(context.Background())

	_, err := NewThrottledExecutor(NoPacer{}, nil).Run(context.Background(), job, func(ctx context.Context, id string) domain.Outcome {
		return domain.Success("ok")
	}, tracker)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if zeros != 1 {
		t.Fatalf("initial running snapshots = %d, want 1", zeros)
	}
}
