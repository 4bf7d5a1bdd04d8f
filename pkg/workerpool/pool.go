// Package workerpool runs background sink jobs (Redis publish, Kafka writes)
// on a bounded set of goroutines so request handlers never block on them.
//
//	pool := workerpool.New(4, 256)
//	defer pool.Shutdown()
//
//	err := pool.Submit("kafka", func(ctx context.Context) error {
//	    return writer.WriteMessages(ctx, msg)
//	})
//	if errors.Is(err, workerpool.ErrPoolFull) {
//	    // the event is dropped; realtime delivery is best-effort
//	}
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
)

var ErrPoolFull = errors.New("workerpool: pool is full")

var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Job is one unit of background work. The context is cancelled when the job
// exceeds the pool's timeout.
type Job func(ctx context.Context) error

type task struct {
	name string
	job  Job
}

type Pool struct {
	tasks   chan task
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts size workers sharing a queue of the given capacity.
func New(size, queue int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue < 0 {
		queue = size * 2
	}

	p := &Pool{
		tasks:   make(chan task, queue),
		timeout: 10 * time.Second,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// WithTimeout sets the per-job deadline.
func (p *Pool) WithTimeout(d time.Duration) *Pool {
	p.timeout = d
	return p
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(name string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task{name: name, job: job}:
		return nil
	default:
		metrics.WorkerJobs.WithLabelValues("dropped").Inc()
		return ErrPoolFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
// It is safe to call multiple times.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		status := "success"
		if err := p.run(t); err != nil {
			status = "failed"
			logger.Warn("background job failed", "job", t.name, "error", err)
		}
		metrics.WorkerJobs.WithLabelValues(status).Inc()
	}
}

// run executes one job, turning a panic into an error so a bad job doesn't
// kill the worker goroutine.
func (p *Pool) run(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return t.job(ctx)
}
