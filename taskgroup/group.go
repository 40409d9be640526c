package taskgroup

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/tahsin716/qpool"
)

// Group batches related work as qpool.Task submissions to a Pool and
// aggregates the results once every submission has run.
type Group struct {
	pool   *qpool.Pool
	config Config

	ctx    context.Context
	cancel context.CancelFunc

	wg          sync.WaitGroup
	completions *completionQueue

	failOnce sync.Once
	firstErr atomic.Pointer[error]

	stopDrain chan struct{}
	drainErrs chan []error
}

// New creates a Group that submits its work to pool. pool is not owned by
// the Group: closing it down is the caller's responsibility.
func New(pool *qpool.Pool, opts ...Option) *Group {
	return NewWithContext(context.Background(), pool, opts...)
}

// NewWithContext is like New but derives the Group's context from parent.
// Under FailFast, the first Task error cancels this context; every Task's
// Routine receives it and should check ctx.Err() to stop early.
func NewWithContext(parent context.Context, pool *qpool.Pool, opts ...Option) *Group {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	g := &Group{
		pool:        pool,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		completions: newCompletionQueue(config.completionCapacity),
		stopDrain:   make(chan struct{}),
		drainErrs:   make(chan []error, 1),
	}
	go g.drain()
	return g
}

// drain continuously pops completion records so producers (workers
// finishing a Task) never spin against a full ring waiting for Wait to
// start. It runs for the Group's whole lifetime and reports the errors it
// collected once stopDrain is closed.
func (g *Group) drain() {
	var errs []error
	for {
		select {
		case <-g.stopDrain:
			for {
				rec := g.completions.pop()
				if rec == nil {
					break
				}
				if rec.err != nil {
					errs = append(errs, rec.err)
				}
			}
			g.drainErrs <- errs
			return
		default:
		}

		rec := g.completions.pop()
		if rec == nil {
			runtime.Gosched()
			continue
		}
		if rec.err != nil {
			errs = append(errs, rec.err)
		}
	}
}

// Go schedules fn as a Task on the Group's pool. fn receives the context
// the pool hands the Task (InPool, Payload), cancelled whenever the Group's
// context is, e.g. on the first FailFast error.
func (g *Group) Go(fn func(context.Context) error) error {
	g.wg.Add(1)

	err := g.pool.Schedule(g.ctx, qpool.Task{
		Routine: func(ctx context.Context) {
			defer g.wg.Done()
			// The pool hands Routine its own context; cancel it whenever the
			// Group's context is cancelled.
			ctx, stop := context.WithCancel(ctx)
			defer stop()
			defer context.AfterFunc(g.ctx, stop)()
			defer func() {
				if r := recover(); r != nil {
					g.record(&PanicError{Value: r, Stack: string(debug.Stack())})
				}
			}()

			if runErr := fn(ctx); runErr != nil {
				g.record(runErr)
			} else {
				g.record(nil)
			}
		},
	})
	if err != nil {
		g.wg.Done()
		return err
	}
	return nil
}

// GoSafe schedules fn as a Task that has no error to return: it records
// success when fn returns. A panic in fn is still recovered by the Group
// and recorded as a *PanicError, exactly as with Go.
func (g *Group) GoSafe(fn func(context.Context)) error {
	return g.Go(func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (g *Group) record(err error) {
	if err == nil {
		g.completions.push(&completionRecord{})
		return
	}

	switch g.config.errorMode {
	case IgnoreErrors:
		g.completions.push(&completionRecord{})
	case FailFast:
		g.failOnce.Do(func() {
			e := err
			g.firstErr.Store(&e)
			g.cancel()
		})
		g.completions.push(&completionRecord{err: err})
	default: // CollectAll
		g.completions.push(&completionRecord{err: err})
	}
}

// Wait blocks until every Task scheduled via Go has run, then returns the
// aggregated outcome according to the Group's ErrorMode. A Group must not
// be reused after Wait returns.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()

	close(g.stopDrain)
	errs := <-g.drainErrs

	switch g.config.errorMode {
	case IgnoreErrors:
		return nil
	case FailFast:
		if p := g.firstErr.Load(); p != nil {
			return *p
		}
		return nil
	default: // CollectAll
		if len(errs) == 0 {
			return nil
		}
		return newAggregateError(errs)
	}
}

// Context returns the Group's context, cancelled once the first FailFast
// error is recorded or Wait returns.
func (g *Group) Context() context.Context {
	return g.ctx
}
