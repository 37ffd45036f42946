package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubResult struct {
	id  int
	err error
}

func (r *stubResult) GetError() error { return r.err }

// stubJob sleeps for delay, records how many jobs overlap, and fails when fail is set
type stubJob struct {
	id      int
	delay   time.Duration
	fail    bool
	running *int32
	peak    *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		n := atomic.AddInt32(j.running, 1)
		defer atomic.AddInt32(j.running, -1)
		for {
			old := atomic.LoadInt32(j.peak)
			if n <= old || atomic.CompareAndSwapInt32(j.peak, old, n) {
				break
			}
		}
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &stubResult{id: j.id, err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{id: j.id, err: errors.New("transcript unreadable")}
	}
	return &stubResult{id: j.id}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	for _, n := range []int{0, -3} {
		if p := NewPool(context.Background(), n); p.workers != 1 {
			t.Errorf("NewPool(%d).workers = %d, want 1", n, p.workers)
		}
	}
	if p := NewPool(context.Background(), 6); p.workers != 6 {
		t.Errorf("workers = %d, want 6", p.workers)
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()
	for i := 0; i < 25; i++ {
		if !pool.Submit(&stubJob{id: i, fail: i%5 == 0}) {
			t.Fatalf("job %d rejected", i)
		}
	}

	results := pool.Wait()
	if len(results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(results))
	}

	seen := make(map[int]bool)
	failed := 0
	for _, r := range results {
		seen[r.(*stubResult).id] = true
		if r.GetError() != nil {
			failed++
		}
	}
	if len(seen) != 25 {
		t.Errorf("expected 25 distinct jobs, got %d", len(seen))
	}
	if failed != 5 {
		t.Errorf("expected 5 failed jobs, got %d", failed)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	var running, peak int32

	pool := NewPool(context.Background(), workers)
	pool.Start()
	for i := 0; i < 20; i++ {
		pool.Submit(&stubJob{id: i, delay: 5 * time.Millisecond, running: &running, peak: &peak})
	}
	pool.Wait()

	if got := atomic.LoadInt32(&peak); got > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", got, workers)
	}
}

func TestPool_SubmitBeyondQueueDoesNotBlock(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	done := make(chan []Result)
	go func() {
		for i := 0; i < 100; i++ {
			pool.Submit(&stubJob{id: i})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != 100 {
			t.Errorf("expected 100 results, got %d", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("submitting more jobs than the queue holds blocked")
	}
}

func TestPool_CancelledParentDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2)
	pool.Start()
	cancel()

	for i := 0; i < 10; i++ {
		pool.Submit(&stubJob{id: i})
	}

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait after cancellation blocked")
	}
}

func TestPool_CancelInterruptsRunningJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	pool.Submit(&stubJob{id: 1, delay: 5 * time.Second})

	time.Sleep(10 * time.Millisecond)
	cancel()

	start := time.Now()
	results := pool.Wait()
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not interrupt the running job")
	}
	if len(results) == 1 && !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].GetError())
	}
}

func TestPool_WaitWithoutStart(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait without Start blocked")
	}
}
