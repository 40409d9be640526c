// Package pool adds a generic, result-bearing convenience layer on top of
// qpool.Pool: submit a Job[T] and read its Result[T] back off a channel,
// instead of threading return values through Task.Payload by hand.
package pool

import (
	"context"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/tahsin716/qpool"
)

// Job represents a unit of work that returns a value of type T and an error.
type Job[T any] func(ctx context.Context) (T, error)

// Result holds the outcome of a job's execution.
type Result[T any] struct {
	Value T
	Error error
}

// Pool submits Job[T] values to an underlying qpool.Pool and publishes
// their Result[T] on a channel. All scheduling, growth, and shutdown
// semantics are qpool's; this layer only adds the generic result plumbing.
type Pool[T any] struct {
	qp        *qpool.Pool
	ownsQPool bool

	results    chan Result[T]
	resultPool sync.Pool

	// inFlight bounds concurrently-running jobs when config.MaxInFlight > 0.
	// qpool itself has no notion of "in flight" beyond worker count, so a
	// caller that wants backpressure narrower than the pool's full worker
	// count acquires this before Schedule and releases it once the job's
	// Routine returns.
	inFlight *semaphore.Weighted

	stats StatsStore

	closeOnce sync.Once
}

// New creates a Pool backed by a new qpool.Pool sized per config.Workers.
func New[T any](opts ...Option) (*Pool[T], error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	qp, err := qpool.New(config.Workers)
	if err != nil {
		return nil, err
	}

	return newPool[T](qp, true, config), nil
}

// Wrap builds a Pool that submits its Job[T] values onto an
// already-running qpool.Pool shared with other callers. Wrap does not own
// qp: Close on the returned Pool only closes Results, and qp must be
// destroyed by whoever created it.
func Wrap[T any](qp *qpool.Pool, opts ...Option) *Pool[T] {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return newPool[T](qp, false, config)
}

func newPool[T any](qp *qpool.Pool, owns bool, config Config) *Pool[T] {
	p := &Pool[T]{
		qp:        qp,
		ownsQPool: owns,
		results:   make(chan Result[T], config.ResultBuffer),
	}
	if config.MaxInFlight > 0 {
		p.inFlight = semaphore.NewWeighted(int64(config.MaxInFlight))
	}
	p.resultPool.New = func() any { return &Result[T]{} }
	return p
}

// Submit enqueues job for execution using a background context.
func (p *Pool[T]) Submit(job Job[T]) error {
	return p.SubmitWithContext(context.Background(), job)
}

// SubmitWithContext enqueues job for execution. If the Pool was built with
// WithMaxInFlight, SubmitWithContext blocks until a slot is free or ctx is
// done. The job runs with the context qpool hands its Task; that context
// does not derive from ctx and is not cancelled with it.
func (p *Pool[T]) SubmitWithContext(ctx context.Context, job Job[T]) error {
	if p.inFlight != nil {
		if err := p.inFlight.Acquire(ctx, 1); err != nil {
			return err
		}
	}

	err := p.qp.Schedule(ctx, qpool.Task{
		Payload: job,
		Routine: func(taskCtx context.Context) { p.execute(taskCtx, job) },
	})
	if err != nil {
		if p.inFlight != nil {
			p.inFlight.Release(1)
		}
		if err == qpool.ErrPoolClosed {
			return ErrPoolClosed
		}
		return err
	}
	p.stats.addSubmitted(1)
	return nil
}

// TrySubmit attempts to enqueue job without blocking on the in-flight
// limit. With no WithMaxInFlight configured it behaves exactly like
// Submit, since qpool.Schedule itself never blocks on a full queue
// (msgqueue.Queue is unbounded here).
func (p *Pool[T]) TrySubmit(job Job[T]) bool {
	if p.inFlight != nil {
		if !p.inFlight.TryAcquire(1) {
			return false
		}
		err := p.qp.Schedule(context.Background(), qpool.Task{
			Payload: job,
			Routine: func(taskCtx context.Context) { p.execute(taskCtx, job) },
		})
		if err != nil {
			p.inFlight.Release(1)
			return false
		}
		p.stats.addSubmitted(1)
		return true
	}
	return p.Submit(job) == nil
}

// execute runs job with panic recovery and publishes its Result.
func (p *Pool[T]) execute(ctx context.Context, job Job[T]) {
	p.stats.addRunning(1)
	defer p.stats.addRunning(-1)
	if p.inFlight != nil {
		defer p.inFlight.Release(1)
	}

	result := p.resultPool.Get().(*Result[T])
	defer func() {
		if result.Error != nil {
			p.stats.addFailed(1)
		} else {
			p.stats.addCompleted(1)
		}
		select {
		case p.results <- *result:
		default:
			// No one is reading Results; drop rather than block a worker.
		}
		*result = Result[T]{}
		p.resultPool.Put(result)
	}()

	defer func() {
		if r := recover(); r != nil {
			result.Error = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()

	result.Value, result.Error = job(ctx)
}

// Results returns the read-only channel of job outcomes. A Result is
// dropped, not blocked on, if the channel's buffer is full when a job
// finishes.
func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Stats returns a snapshot of this Pool's activity.
func (p *Pool[T]) Stats() Stats {
	s := p.stats.get()
	s.Workers = p.qp.Stats().Workers
	return s
}

// Close shuts the Pool down. If it owns its underlying qpool.Pool, Close
// destroys it, draining any Job that never ran via pending. Close on a
// Wrap-constructed Pool only closes Results: the shared qpool.Pool outlives
// it, and Close does not wait for Jobs already submitted to it.
func (p *Pool[T]) Close(ctx context.Context, pending func(Job[T])) error {
	var err error
	p.closeOnce.Do(func() {
		if !p.ownsQPool {
			close(p.results)
			return
		}
		err = p.qp.Destroy(ctx, func(t qpool.Task) {
			if pending == nil {
				return
			}
			if job, ok := t.Payload.(Job[T]); ok {
				pending(job)
			}
		})
		close(p.results)
	})
	return err
}
