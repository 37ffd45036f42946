// Package worker runs grading and source-check jobs concurrently.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job is one unit of pool work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers. Results are drained as they
// arrive so Submit never blocks on an unread result.
type Pool struct {
	workers int
	queue   chan Job
	results chan Result
	drained chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	once    sync.Once

	mu        sync.Mutex
	collected []Result
}

// NewPool creates a pool bound to parent; cancelling parent stops the workers
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers: workers,
		queue:   make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		drained: make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers; calling it twice is a no-op
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.drain()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *Pool) drain() {
	defer close(p.drained)
	for r := range p.results {
		p.mu.Lock()
		p.collected = append(p.collected, r)
		p.mu.Unlock()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false if the pool was cancelled first.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- job:
		return true
	}
}

// Wait stops accepting jobs, waits for the queued ones, and returns their
// results in completion order. Jobs still queued when the parent context is
// cancelled produce no result.
func (p *Pool) Wait() []Result {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
	close(p.results)
	if p.started.Load() {
		<-p.drained
	}
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Result, len(p.collected))
	copy(out, p.collected)
	return out
}
