// Package qpool implements a fixed-but-growable worker pool fed by a
// msgqueue.Queue, with orderly growth and orderly shutdown — including
// shutdown initiated from inside a worker's own task.
//
// # Quick start
//
//	p, err := qpool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = p.Schedule(context.Background(), qpool.Task{
//	    Routine: func(ctx context.Context) {
//	        fmt.Println("hello from a worker")
//	    },
//	})
//	p.Destroy(context.Background(), nil)
//
// # Shutdown
//
// Destroy stops accepting new tasks, drains the queue, waits for every
// worker to exit, and invokes the optional pending hook once per task that
// never got to run. A task's own Routine may call Destroy on its own pool;
// qpool detects this via the context it handed the Routine and takes the
// self-destruction path described in SPEC_FULL.md §4.2.
//
// # Growth
//
// Increase adds workers to a running pool. The pool never removes workers
// on its own; composing autoscale.Watcher on top gives a backlog-driven
// growth policy.
package qpool

import (
	"context"
	"sync"

	"github.com/tahsin716/qpool/msgqueue"
)

// Pool is a fixed-but-growable set of worker goroutines consuming tasks
// from an internal msgqueue.Queue.
type Pool struct {
	queue  *msgqueue.Queue
	config Config
	stats  statsStore

	mu         sync.Mutex
	nThreads   int
	lastExiter *worker
	terminate  *sync.Cond // created by New; Destroy waits on it for nThreads == 0
	destroying bool       // set by Destroy; the shutdown signal

	// destroyedBy is set, under mu, to the worker whose task called Destroy
	// on this same pool. A worker checks this after its task returns to
	// decide whether to run the ordinary exit protocol or to recognise that
	// Destroy already ran it inline.
	destroyedBy *worker

	nextWorkerID int
}

// New creates a Pool with nThreads workers and starts them immediately.
func New(nThreads int, opts ...Option) (*Pool, error) {
	if nThreads < 1 {
		return nil, ErrInvalidWorkerCount
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = noopLogger{}
	}

	p := &Pool{
		queue:  msgqueue.New(0), // unbounded, matching the source's own pool queue
		config: config,
	}
	p.terminate = sync.NewCond(&p.mu)

	for i := 0; i < nThreads; i++ {
		p.startWorkerLocked()
	}

	return p, nil
}

// startWorkerLocked spawns one worker and registers it. Callers must hold
// p.mu is NOT required here at construction time (no concurrent access is
// possible yet); Increase takes the lock itself around this call.
func (p *Pool) startWorkerLocked() {
	id := p.nextWorkerID
	p.nextWorkerID++
	w := newWorker(id, p)
	p.nThreads++
	go w.run()
}

// Schedule enqueues t for execution. It returns ErrPoolClosed once Destroy
// has been called.
func (p *Pool) Schedule(ctx context.Context, t Task) error {
	p.mu.Lock()
	closed := p.destroying
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	p.stats.addSubmitted()
	p.queue.Put(&taskEntry{task: t})
	return nil
}

// Increase spawns n additional workers. A concurrent Destroy cannot observe
// a stale worker count because both hold the pool mutex.
func (p *Pool) Increase(n int) error {
	if n < 1 {
		return ErrInvalidGrowth
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroying {
		return ErrPoolClosed
	}

	for i := 0; i < n; i++ {
		p.startWorkerLocked()
	}
	return nil
}

// InPool reports whether ctx was produced by p invoking a Task.
func (p *Pool) InPool(ctx context.Context) bool {
	return InPool(ctx, p)
}

// Destroy shuts the pool down. It stops accepting new tasks, drains the
// queue, waits for every worker to exit, and invokes pending once per task
// that never ran. pending may be nil to silently discard leftover tasks.
//
// ctx should be the same context the caller's own Routine was invoked with
// when Destroy is called from inside a worker; qpool uses it to detect the
// self-destruction case and takes the branch described in SPEC_FULL.md.
func (p *Pool) Destroy(ctx context.Context, pending func(Task)) error {
	inside := ctx != nil && p.InPool(ctx)

	p.mu.Lock()
	if p.destroying {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.destroying = true
	p.mu.Unlock()

	p.queue.SetNonblock()

	var self *worker
	if inside {
		self = currentWorker(ctx)
	}

	if self != nil {
		// This worker will never loop back to run the ordinary exit
		// protocol on its own behalf (it is blocked here, inside its own
		// task), so Destroy performs that registration for it: snapshot and
		// replace lastExiter, decrement nThreads, and join the snapshot
		// predecessor immediately — exactly what worker.exit does for an
		// ordinary exit. Closing self.done here, before the wait below,
		// is what lets any worker that later snapshots self as its own
		// predecessor proceed without deadlocking against this call.
		p.mu.Lock()
		prev := p.lastExiter
		p.lastExiter = self
		p.nThreads--
		p.destroyedBy = self
		if p.nThreads == 0 && p.terminate != nil {
			p.terminate.Signal()
		}
		p.mu.Unlock()

		if prev != nil {
			<-prev.done
		}
		close(self.done)
	}

	p.mu.Lock()
	for p.nThreads > 0 {
		p.terminate.Wait()
	}
	last := p.lastExiter
	p.mu.Unlock()

	if last != nil && last != self {
		<-last.done
	}

	p.drain(pending)
	p.config.Logger.Debugf("qpool: pool destroyed")

	return nil
}

// drain delivers every task left in the queue to pending, or discards them
// if pending is nil. The queue must already be in nonblock mode and have no
// concurrent producers left, which Destroy guarantees by this point.
func (p *Pool) drain(pending func(Task)) {
	for {
		m := p.queue.Get()
		if m == nil {
			break
		}
		entry := m.(*taskEntry)
		if pending != nil {
			pending(entry.task)
		}
	}
	p.queue.Close()
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	n := p.nThreads
	p.mu.Unlock()

	s := p.stats.get()
	s.Workers = int64(n)
	s.Queued = p.queue.Len()
	return s
}

// currentWorker retrieves the worker executing the task ctx was handed to.
// It is set by wrapContext alongside the pool identity so a self-destructing
// task can identify itself to Destroy.
func currentWorker(ctx context.Context) *worker {
	w, _ := ctx.Value(currentWorkerKey{}).(*worker)
	return w
}
