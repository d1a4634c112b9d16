/*
Package worker provides the fixed-size worker pool used to fan
independent scan tasks (subtree visits, content hashing) out across
goroutines, with optional rate limiting and context cancellation.

Task failures are isolated: a task whose Execute returns an error is
reported through its Result and the pool keeps draining the queue. Only
context cancellation stops the pool early, and then without submitting
further work.

Basic usage:

	pool, _ := worker.NewPool(worker.Config{Workers: worker.AutoWorkers})
	pool.Start(ctx)
	pool.Submit(worker.Task{ID: 1, Execute: hashFile})
	results, err := pool.Wait()
*/
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// AutoWorkers resolves the worker count to the available parallelism at
// pool start.
const AutoWorkers = 0

// Task represents a unit of work to be processed by the worker pool
type Task struct {
	// ID identifies the task in results and error reports
	ID int

	// Execute performs the actual work. It receives a context for
	// cancellation support.
	Execute func(context.Context) (Result, error)
}

// Result represents the output of a processed task
type Result struct {
	// ID matches the task ID that produced this result
	ID int

	// Data holds the actual result data
	Data interface{}

	// Err is the task's failure, nil on success. A non-nil Err never
	// aborts the rest of the queue.
	Err error

	// order preserves submission order across workers
	order int
}

// Config holds the configuration for the worker pool
type Config struct {
	// Workers is the number of concurrent workers; AutoWorkers picks
	// the available parallelism
	Workers int

	// RateLimit is the maximum number of tasks started per second
	// (0 for unlimited)
	RateLimit int
}

// Pool defines the interface for a worker pool
type Pool interface {
	// Start initializes and starts the worker pool
	Start(context.Context) error

	// Submit adds a task to the pool for processing
	Submit(Task) error

	// Wait blocks until all submitted tasks are processed and returns
	// their results, failed tasks included
	Wait() ([]Result, error)

	// GetStats returns current statistics about the pool
	GetStats() Stats

	// Stop shuts down the pool without waiting for queued tasks
	Stop() error
}

type pool struct {
	config  Config
	workers int

	tasks   chan Task
	results chan Result
	limiter *rate.Limiter

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	started   bool
	draining  bool
	stopped   bool
	startTime time.Time

	resultBuf   []Result
	collectDone chan struct{}
	resultsOnce sync.Once

	active    atomic.Int32
	completed atomic.Int64
	failed    atomic.Int64

	taskOrder int
	orderMu   sync.Mutex
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(config Config) (Pool, error) {
	if config.Workers < 0 {
		return nil, fmt.Errorf("number of workers must be non-negative")
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be non-negative")
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &pool{
		config:  config,
		limiter: limiter,
	}, nil
}

// ResolveWorkers maps AutoWorkers to the available parallelism.
func ResolveWorkers(n int) int {
	if n <= AutoWorkers {
		return runtime.NumCPU()
	}
	return n
}

func (p *pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}

	p.workers = ResolveWorkers(p.config.Workers)
	p.tasks = make(chan Task, p.workers*2)
	p.results = make(chan Result, p.workers*2)
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	p.startTime = time.Now()

	// The drain must run for the whole pool lifetime: workers block
	// sending into a full results buffer, which would wedge Submit long
	// before Wait is ever entered.
	p.collectDone = make(chan struct{})
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return nil
}

// collect accumulates worker results until the results channel closes.
// resultBuf is published to Wait by the collectDone close.
func (p *pool) collect() {
	for result := range p.results {
		p.resultBuf = append(p.resultBuf, result)
	}
	close(p.collectDone)
}

func (p *pool) Submit(task Task) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("pool not started")
	}
	if p.draining {
		p.mu.Unlock()
		return fmt.Errorf("pool is draining")
	}
	p.mu.Unlock()

	p.orderMu.Lock()
	order := p.taskOrder
	p.taskOrder++
	p.orderMu.Unlock()

	wrapped := task
	execute := task.Execute
	wrapped.Execute = func(ctx context.Context) (Result, error) {
		res, err := execute(ctx)
		res.order = order
		return res, err
	}

	select {
	case <-p.ctx.Done():
		return fmt.Errorf("pool is shutting down: %w", p.ctx.Err())
	case p.tasks <- wrapped:
		return nil
	}
}

func (p *pool) Wait() ([]Result, error) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool not started")
	}
	if !p.draining {
		close(p.tasks)
		p.draining = true
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.resultsOnce.Do(func() { close(p.results) })
	<-p.collectDone

	results := p.resultBuf
	sort.Slice(results, func(i, j int) bool {
		return results[i].order < results[j].order
	})

	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || !p.started {
		p.stopped = true
		return nil
	}
	p.stopped = true

	p.cancel()
	if !p.draining {
		close(p.tasks)
		p.draining = true
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		p.resultsOnce.Do(func() { close(p.results) })
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(500 * time.Millisecond):
		return fmt.Errorf("shutdown timed out")
	}
}

func (p *pool) GetStats() Stats {
	p.mu.Lock()
	started := p.started
	stopped := p.stopped
	startTime := p.startTime
	queued := 0
	if p.tasks != nil {
		queued = len(p.tasks)
	}
	p.mu.Unlock()

	status := StatusStopped
	if started && !stopped {
		if p.active.Load() > 0 || queued > 0 {
			status = StatusProcessing
		} else {
			status = StatusIdle
		}
	}

	stats := Stats{
		ActiveWorkers:  int(p.active.Load()),
		QueuedTasks:    queued,
		CompletedTasks: int(p.completed.Load()),
		FailedTasks:    int(p.failed.Load()),
		Status:         status,
	}
	if started {
		stats.Uptime = time.Since(startTime)
	}
	return stats
}

func (p *pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		if p.ctx.Err() != nil {
			// Cancelled: drain the queue without starting new work.
			continue
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(p.ctx); err != nil {
				continue
			}
		}

		p.active.Add(1)
		result, err := task.Execute(p.ctx)
		p.active.Add(-1)

		if err != nil {
			result.ID = task.ID
			result.Err = fmt.Errorf("task %d failed: %w", task.ID, err)
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}

		select {
		case <-p.ctx.Done():
		case p.results <- result:
		}
	}
}
